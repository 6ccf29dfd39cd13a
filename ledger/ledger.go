// Copyright 2024 Greymass Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package ledger implements the drop collectible ledger. Drops are
// numbered tokens whose identifiers are derived from caller-supplied
// entropy. Creating an unbound drop purchases storage bytes from the
// market; destroying or binding it sells the bytes back. All drop
// operations run inside a single database transaction so a failed check
// unwinds every row change and market trade.
package ledger

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/aaroncox/drops/database"
	"github.com/aaroncox/drops/event"
	"github.com/aaroncox/drops/market"
	"github.com/prometheus/client_golang/prometheus"
)

// Storage footprint of the ledger rows, in bytes. A drop occupies its
// primary row plus the owner index entry.
const (
	primaryRow     = 136
	secondaryIndex = 144
	RecordSize     = primaryRow + secondaryIndex
	PurchaseBuffer = 1
	AccountRow     = 124
	StatRow        = 412
)

const (
	DefaultEpochPhase = time.Hour
	// DefaultAdvanceCap bounds how many epochs a single catch-up may
	// open after a long idle period
	DefaultAdvanceCap = 100
	// MinimumEntropyLength is the shortest entropy accepted for drop
	// generation, exclusive
	MinimumEntropyLength = 32
	// MaxGenerateCount bounds a single generation batch. Memo counts
	// parse within this bound, keeping the storage footprint arithmetic
	// far from overflow.
	MaxGenerateCount = 1<<31 - 1
)

var (
	ErrNotInitialized      = errors.New("ledger has not been initialized")
	ErrAlreadyInitialized  = errors.New("ledger has already been initialized")
	ErrDisabled            = errors.New("ledger is not enabled")
	ErrInvalidMemo         = errors.New("invalid deposit memo")
	ErrInsufficientPayment = errors.New("deposit does not cover the storage cost")
	ErrDropNotFound        = errors.New("drop does not exist")
	ErrDropBound           = errors.New("drop is bound")
	ErrDropNotBound        = errors.New("drop is not bound")
	ErrNotOwner            = errors.New("drop does not belong to account")
	ErrAccountNotFound     = errors.New("recipient account does not exist")
	ErrNoUnbindRequest     = errors.New("no unbind request exists for account")
	ErrUnbindPending       = errors.New("an unbind request is already pending")
	ErrAdvanceCapExceeded  = errors.New("epoch catch-up exceeded advance cap")
)

// Treasury moves system currency between accounts. Deposits arrive as
// notifications from the treasury; refunds and sale proceeds leave
// through it.
type Treasury interface {
	Transfer(from, to string, quantity market.Asset, memo string) error
}

// Authorizer verifies caller authority and account existence
type Authorizer interface {
	RequireAuth(account string) error
	IsAccount(account string) bool
}

// Config contains the options for creating a ledger
type Config struct {
	Logger       *slog.Logger
	Database     *database.Database
	EventBus     *event.EventBus
	Exchange     *market.Exchange
	Treasury     Treasury
	Authorizer   Authorizer
	PromRegistry prometheus.Registerer
	// LedgerAccount holds deposits and pays for storage purchases
	LedgerAccount string
	// ReserveAccount is the storage market reserve. Deposits from it are
	// ignored, since they are sale proceeds in flight.
	ReserveAccount string
	// SystemAccount owns the genesis drop
	SystemAccount string
	// EpochPhase is the duration of each epoch
	EpochPhase time.Duration
	// AdvanceCap bounds catch-up epoch advancement
	AdvanceCap int
	// Now overrides the clock, used for testing
	Now func() time.Time
}

// Ledger processes drop operations against the database, the storage
// market, and the treasury
type Ledger struct {
	logger     *slog.Logger
	db         *database.Database
	eventBus   *event.EventBus
	exchange   *market.Exchange
	treasury   Treasury
	authorizer Authorizer
	metrics    *ledgerMetrics
	config     Config
	now        func() time.Time
}

func New(cfg Config) *Ledger {
	if cfg.EpochPhase <= 0 {
		cfg.EpochPhase = DefaultEpochPhase
	}
	if cfg.AdvanceCap <= 0 {
		cfg.AdvanceCap = DefaultAdvanceCap
	}
	l := &Ledger{
		logger:     cfg.Logger,
		db:         cfg.Database,
		eventBus:   cfg.EventBus,
		exchange:   cfg.Exchange,
		treasury:   cfg.Treasury,
		authorizer: cfg.Authorizer,
		config:     cfg,
		now:        cfg.Now,
	}
	if l.logger == nil {
		l.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if l.now == nil {
		l.now = time.Now
	}
	if cfg.PromRegistry != nil {
		l.initMetrics(cfg.PromRegistry)
	}
	return l
}

// requireEnabled loads the ledger state and verifies operations are
// allowed
func (l *Ledger) requireEnabled(txn *database.Txn) error {
	state, err := l.db.GetState(txn)
	if err != nil {
		return err
	}
	if state == nil {
		return ErrNotInitialized
	}
	if !state.Enabled {
		return ErrDisabled
	}
	return nil
}

// pendingTransfer is a treasury movement queued during a transaction.
// Payouts only run after the transaction commits, so a rollback can
// never leave an external transfer behind.
type pendingTransfer struct {
	from     string
	to       string
	quantity market.Asset
	memo     string
}

func (l *Ledger) flushTransfers(transfers []pendingTransfer) error {
	for _, transfer := range transfers {
		err := l.treasury.Transfer(
			transfer.from,
			transfer.to,
			transfer.quantity,
			transfer.memo,
		)
		if err != nil {
			return fmt.Errorf("treasury transfer to %s: %w", transfer.to, err)
		}
	}
	return nil
}

func (l *Ledger) publish(eventType event.EventType, data any) {
	if l.eventBus == nil {
		return
	}
	l.eventBus.Publish(eventType, event.NewEvent(eventType, data))
}
