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

	"github.com/aaroncox/drops/database"
)

// Enable toggles whether drop operations are accepted
func (l *Ledger) Enable(enabled bool) error {
	if err := l.authorizer.RequireAuth(l.config.LedgerAccount); err != nil {
		return err
	}
	txn := l.db.Transaction(true)
	err := txn.Do(func(txn *database.Txn) error {
		state, err := l.db.GetState(txn)
		if err != nil {
			return err
		}
		if state == nil {
			return ErrNotInitialized
		}
		return l.db.SetState(state.Epoch, enabled, txn)
	})
	if err != nil {
		return err
	}
	l.logger.Info(
		"ledger enabled state changed",
		"component", "ledger",
		"enabled", enabled,
	)
	return nil
}

// AddOracle adds an account to the live oracle allow-list. The change
// takes effect in the next epoch snapshot.
func (l *Ledger) AddOracle(name string) error {
	if err := l.authorizer.RequireAuth(l.config.LedgerAccount); err != nil {
		return err
	}
	if !l.authorizer.IsAccount(name) {
		return fmt.Errorf("%s: %w", name, ErrAccountNotFound)
	}
	txn := l.db.Transaction(true)
	err := txn.Do(func(txn *database.Txn) error {
		existing, err := l.db.GetOracle(name, txn)
		if err != nil {
			return err
		}
		if existing != nil {
			return fmt.Errorf("oracle %s is already registered", name)
		}
		return l.db.AddOracle(name, txn)
	})
	if err != nil {
		return err
	}
	l.logger.Info("oracle added", "component", "ledger", "oracle", name)
	return nil
}

// RemoveOracle removes an account from the live oracle allow-list.
// Epochs already holding the oracle in their snapshot still require its
// reveal.
func (l *Ledger) RemoveOracle(name string) error {
	if err := l.authorizer.RequireAuth(l.config.LedgerAccount); err != nil {
		return err
	}
	txn := l.db.Transaction(true)
	err := txn.Do(func(txn *database.Txn) error {
		return l.db.RemoveOracle(name, txn)
	})
	if err != nil {
		return err
	}
	l.logger.Info("oracle removed", "component", "ledger", "oracle", name)
	return nil
}

// Subscribe registers an account for epoch advance notifications
func (l *Ledger) Subscribe(account string) error {
	if err := l.authorizer.RequireAuth(account); err != nil {
		return err
	}
	txn := l.db.Transaction(true)
	return txn.Do(func(txn *database.Txn) error {
		subscribers, err := l.db.GetSubscribers(txn)
		if err != nil {
			return err
		}
		for _, name := range subscribers {
			if name == account {
				return fmt.Errorf("%s is already subscribed", account)
			}
		}
		return l.db.AddSubscriber(account, txn)
	})
}

// Unsubscribe removes an account from epoch advance notifications
func (l *Ledger) Unsubscribe(account string) error {
	if err := l.authorizer.RequireAuth(account); err != nil {
		return err
	}
	txn := l.db.Transaction(true)
	return txn.Do(func(txn *database.Txn) error {
		return l.db.RemoveSubscriber(account, txn)
	})
}

// Wipe clears every table. Development tooling only.
func (l *Ledger) Wipe() error {
	if err := l.authorizer.RequireAuth(l.config.LedgerAccount); err != nil {
		return err
	}
	txn := l.db.Transaction(true)
	err := txn.Do(func(txn *database.Txn) error {
		return l.db.Wipe(txn)
	})
	if err != nil {
		return err
	}
	l.logger.Warn("ledger wiped", "component", "ledger")
	return nil
}
