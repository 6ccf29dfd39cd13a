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

// Package oracle implements the commit-reveal randomness scheme. Each
// epoch captures a snapshot of the oracle allow-list; every snapshot
// oracle commits a hash during the epoch and reveals the pre-image after
// it closes. The final reveal freezes the epoch's randomness digest.
package oracle

import (
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/aaroncox/drops/database"
	"github.com/aaroncox/drops/event"
)

var (
	ErrEpochNotFound     = errors.New("epoch does not exist")
	ErrEpochNotStarted   = errors.New("epoch has not started")
	ErrEpochStillOpen    = errors.New("epoch has not concluded")
	ErrEpochClosed       = errors.New("epoch has concluded")
	ErrEpochNotComplete  = errors.New("epoch randomness is not yet complete")
	ErrNotInSnapshot     = errors.New("oracle is not in the epoch snapshot")
	ErrDuplicateCommit   = errors.New("oracle has already committed for this epoch")
	ErrDuplicateReveal   = errors.New("oracle has already revealed for this epoch")
	ErrMissingCommitment = errors.New("oracle has no commitment for this epoch")
)

// Authorizer verifies that the caller holds authority for an account
type Authorizer interface {
	RequireAuth(account string) error
}

// Config contains the options for creating an oracle engine
type Config struct {
	Logger     *slog.Logger
	Database   *database.Database
	EventBus   *event.EventBus
	Authorizer Authorizer
	// Now overrides the clock, used for testing
	Now func() time.Time
}

// Engine processes oracle commitments and reveals and derives randomness
// for completed epochs
type Engine struct {
	logger     *slog.Logger
	db         *database.Database
	eventBus   *event.EventBus
	authorizer Authorizer
	now        func() time.Time
}

func NewEngine(cfg Config) *Engine {
	e := &Engine{
		logger:     cfg.Logger,
		db:         cfg.Database,
		eventBus:   cfg.EventBus,
		authorizer: cfg.Authorizer,
		now:        cfg.Now,
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.logger == nil {
		e.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return e
}
