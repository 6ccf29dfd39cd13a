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
	"github.com/aaroncox/drops/event"
)

// Transfer moves unbound drops between accounts. Every drop must exist,
// be unbound, and belong to the sender; any failure unwinds the whole
// batch.
func (l *Ledger) Transfer(from, to string, dropIds []uint64) error {
	if err := l.authorizer.RequireAuth(from); err != nil {
		return err
	}
	if from == to {
		return fmt.Errorf("cannot transfer drops to self")
	}
	if len(dropIds) == 0 {
		return fmt.Errorf("no drops specified")
	}
	if !l.authorizer.IsAccount(to) {
		return fmt.Errorf("%s: %w", to, ErrAccountNotFound)
	}
	txn := l.db.Transaction(true)
	err := txn.Do(func(txn *database.Txn) error {
		if err := l.requireEnabled(txn); err != nil {
			return err
		}
		// Batch per-epoch counts so each stat row is written once
		perEpoch := make(map[uint64]uint64)
		for _, id := range dropIds {
			drop, err := l.db.GetDrop(id, txn)
			if err != nil {
				return err
			}
			if drop == nil {
				return fmt.Errorf("drop %d: %w", id, ErrDropNotFound)
			}
			if drop.Bound {
				return fmt.Errorf("drop %d: %w", id, ErrDropBound)
			}
			if drop.Owner != from {
				return fmt.Errorf("drop %d: %w %s", id, ErrNotOwner, from)
			}
			if err := l.db.UpdateDropOwner(id, to, txn); err != nil {
				return err
			}
			perEpoch[drop.Epoch]++
		}
		moved := uint64(len(dropIds))
		if err := l.adjustStats(from, perEpoch, false, txn); err != nil {
			return err
		}
		if err := l.adjustStats(to, perEpoch, true, txn); err != nil {
			return err
		}
		if err := l.adjustAccount(from, moved, false, txn); err != nil {
			return err
		}
		if err := l.adjustAccount(to, moved, true, txn); err != nil {
			return err
		}
		_, err := l.db.AddReceipt(database.Receipt{
			Kind:    "transfer",
			Account: from,
			Count:   moved,
			Detail:  to,
		}, txn)
		return err
	})
	if err != nil {
		return err
	}
	if l.metrics != nil {
		l.metrics.transferred.Add(float64(len(dropIds)))
	}
	l.publish(event.TransferEventType, event.TransferEvent{
		From:    from,
		To:      to,
		DropIds: dropIds,
	})
	l.logger.Info(
		"drops transferred",
		"component", "ledger",
		"from", from,
		"to", to,
		"count", len(dropIds),
	)
	return nil
}

// adjustAccount applies a delta to an account's drop total, creating the
// row on first receipt and removing it when the total reaches zero
func (l *Ledger) adjustAccount(
	name string,
	delta uint64,
	increment bool,
	txn *database.Txn,
) error {
	account, err := l.db.GetAccount(name, txn)
	if err != nil {
		return err
	}
	if increment {
		total := delta
		if account != nil {
			total += account.Drops
		}
		return l.db.SetAccount(name, total, txn)
	}
	if account == nil || account.Drops < delta {
		return fmt.Errorf("account %s balance underflow", name)
	}
	remaining := account.Drops - delta
	if remaining == 0 {
		return l.db.DeleteAccount(name, txn)
	}
	return l.db.SetAccount(name, remaining, txn)
}

// adjustStats applies per-epoch deltas to an account's stat rows
func (l *Ledger) adjustStats(
	name string,
	perEpoch map[uint64]uint64,
	increment bool,
	txn *database.Txn,
) error {
	for epoch, delta := range perEpoch {
		stat, err := l.db.GetStat(name, epoch, txn)
		if err != nil {
			return err
		}
		if increment {
			total := delta
			if stat != nil {
				total += stat.Drops
			}
			if err := l.db.SetStat(name, epoch, total, txn); err != nil {
				return err
			}
			continue
		}
		if stat == nil || stat.Drops < delta {
			return fmt.Errorf(
				"account %s epoch %d stat underflow",
				name,
				epoch,
			)
		}
		remaining := stat.Drops - delta
		if remaining == 0 {
			if err := l.db.DeleteStat(name, epoch, txn); err != nil {
				return err
			}
			continue
		}
		if err := l.db.SetStat(name, epoch, remaining, txn); err != nil {
			return err
		}
	}
	return nil
}
