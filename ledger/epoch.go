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

package ledger

import (
	"fmt"
	"time"

	"github.com/aaroncox/drops/database"
	"github.com/aaroncox/drops/database/models"
	"github.com/aaroncox/drops/event"
)

// Init creates the genesis state: epoch 1 aligned to a phase boundary,
// the genesis drop owned by the system account, and the ledger disabled.
// The current oracle allow-list becomes epoch 1's snapshot.
func (l *Ledger) Init() error {
	if err := l.authorizer.RequireAuth(l.config.LedgerAccount); err != nil {
		return err
	}
	txn := l.db.Transaction(true)
	err := txn.Do(func(txn *database.Txn) error {
		state, err := l.db.GetState(txn)
		if err != nil {
			return err
		}
		if state != nil {
			return ErrAlreadyInitialized
		}
		now := l.now()
		start := now.Truncate(l.config.EpochPhase)
		end := start.Add(l.config.EpochPhase)
		if err := l.db.AddEpoch(1, start, end, txn); err != nil {
			return err
		}
		oracles, err := l.db.GetOracles(txn)
		if err != nil {
			return err
		}
		if err := l.db.AddOracleEpoch(1, oracles, txn); err != nil {
			return err
		}
		err = l.db.AddDrop(0, l.config.SystemAccount, 1, true, now, txn)
		if err != nil {
			return err
		}
		if err := l.db.SetAccount(l.config.SystemAccount, 1, txn); err != nil {
			return err
		}
		if err := l.db.SetStat(l.config.SystemAccount, 1, 1, txn); err != nil {
			return err
		}
		return l.db.SetState(1, false, txn)
	})
	if err != nil {
		return err
	}
	if l.metrics != nil {
		l.metrics.epoch.Set(1)
	}
	l.logger.Info(
		"ledger initialized",
		"component", "ledger",
		"epoch", 1,
	)
	return nil
}

// Advance opens the next epoch once the current one has concluded and
// captures the oracle allow-list snapshot for it
func (l *Ledger) Advance() (*models.Epoch, error) {
	var advanced []advancedEpoch
	var next *models.Epoch
	txn := l.db.Transaction(true)
	err := txn.Do(func(txn *database.Txn) error {
		if err := l.requireEnabled(txn); err != nil {
			return err
		}
		var err error
		next, err = l.advanceEpoch(txn)
		if err != nil {
			return err
		}
		advanced = append(advanced, advancedEpoch{epoch: next})
		return nil
	})
	if err != nil {
		return nil, err
	}
	l.notifyAdvance(advanced)
	return next, nil
}

// EnsureCurrent advances the epoch until the current time falls inside
// it, bounded by the configured advance cap. Used to catch up after idle
// periods before processing a deposit.
func (l *Ledger) EnsureCurrent() error {
	var advanced []advancedEpoch
	txn := l.db.Transaction(true)
	err := txn.Do(func(txn *database.Txn) error {
		if err := l.requireEnabled(txn); err != nil {
			return err
		}
		var err error
		advanced, err = l.ensureCurrent(txn)
		return err
	})
	if err != nil {
		return err
	}
	l.notifyAdvance(advanced)
	return nil
}

type advancedEpoch struct {
	epoch   *models.Epoch
	oracles []string
}

func (l *Ledger) ensureCurrent(txn *database.Txn) ([]advancedEpoch, error) {
	var advanced []advancedEpoch
	for range l.config.AdvanceCap {
		state, err := l.db.GetState(txn)
		if err != nil {
			return nil, err
		}
		if state == nil {
			return nil, ErrNotInitialized
		}
		current, err := l.db.GetEpoch(state.Epoch, txn)
		if err != nil {
			return nil, err
		}
		if current == nil {
			return nil, fmt.Errorf("epoch %d has no row", state.Epoch)
		}
		if l.now().Before(current.End) {
			return advanced, nil
		}
		next, err := l.advanceEpoch(txn)
		if err != nil {
			return nil, err
		}
		advanced = append(advanced, advancedEpoch{epoch: next})
	}
	return nil, fmt.Errorf(
		"%w: more than %d epochs behind",
		ErrAdvanceCapExceeded,
		l.config.AdvanceCap,
	)
}

func (l *Ledger) advanceEpoch(txn *database.Txn) (*models.Epoch, error) {
	state, err := l.db.GetState(txn)
	if err != nil {
		return nil, err
	}
	if state == nil {
		return nil, ErrNotInitialized
	}
	current, err := l.db.GetEpoch(state.Epoch, txn)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, fmt.Errorf("epoch %d has no row", state.Epoch)
	}
	if l.now().Before(current.End) {
		return nil, fmt.Errorf(
			"epoch %d does not conclude until %s",
			state.Epoch,
			current.End.Format(time.RFC3339),
		)
	}
	nextNumber := state.Epoch + 1
	start := current.End
	end := start.Add(l.config.EpochPhase)
	if err := l.db.AddEpoch(nextNumber, start, end, txn); err != nil {
		return nil, err
	}
	oracles, err := l.db.GetOracles(txn)
	if err != nil {
		return nil, err
	}
	if err := l.db.AddOracleEpoch(nextNumber, oracles, txn); err != nil {
		return nil, err
	}
	if err := l.db.SetState(nextNumber, state.Enabled, txn); err != nil {
		return nil, err
	}
	return &models.Epoch{
		Number: nextNumber,
		Start:  start,
		End:    end,
	}, nil
}

// notifyAdvance publishes an advance event per newly opened epoch and
// logs the subscriber list that should be informed. Runs after the
// advancing transaction commits, so a rollback never reports an epoch.
func (l *Ledger) notifyAdvance(advanced []advancedEpoch) {
	if len(advanced) == 0 {
		return
	}
	if l.metrics != nil {
		latest := advanced[len(advanced)-1].epoch.Number
		l.metrics.epoch.Set(float64(latest))
	}
	subscribers, err := l.db.GetSubscribers(nil)
	if err != nil {
		l.logger.Warn(
			"failed to load subscribers",
			"component", "ledger",
			"error", err,
		)
	}
	for _, item := range advanced {
		oracles, err := l.db.GetOracleEpoch(item.epoch.Number, nil)
		if err == nil && oracles != nil {
			item.oracles = oracles.Oracles
		}
		l.publish(
			event.EpochAdvanceEventType,
			event.EpochAdvanceEvent{
				Number:  item.epoch.Number,
				Start:   item.epoch.Start,
				End:     item.epoch.End,
				Oracles: item.oracles,
			},
		)
		l.logger.Info(
			"epoch advanced",
			"component", "ledger",
			"epoch", item.epoch.Number,
			"start", item.epoch.Start,
			"end", item.epoch.End,
			"subscribers", len(subscribers),
		)
	}
}
