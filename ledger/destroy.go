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
	"github.com/aaroncox/drops/market"
)

// Destroy removes drops the owner holds and sells the storage of the
// unbound ones back to the market, paying the owner the proceeds. Bound
// drops release no market bytes since the owner already carried their
// storage.
func (l *Ledger) Destroy(
	owner string,
	dropIds []uint64,
) (market.Asset, error) {
	if err := l.authorizer.RequireAuth(owner); err != nil {
		return market.Asset{}, err
	}
	if len(dropIds) == 0 {
		return market.Asset{}, fmt.Errorf("no drops specified")
	}
	var proceeds market.Asset
	var transfers []pendingTransfer
	snapshot := l.exchange.Snapshot()
	txn := l.db.Transaction(true)
	err := txn.Do(func(txn *database.Txn) error {
		if err := l.requireEnabled(txn); err != nil {
			return err
		}
		perEpoch := make(map[uint64]uint64)
		var bound uint64
		for _, id := range dropIds {
			drop, err := l.db.GetDrop(id, txn)
			if err != nil {
				return err
			}
			if drop == nil {
				return fmt.Errorf("drop %d: %w", id, ErrDropNotFound)
			}
			if drop.Owner != owner {
				return fmt.Errorf("drop %d: %w %s", id, ErrNotOwner, owner)
			}
			if drop.Bound {
				bound++
			}
			if err := l.db.DeleteDrop(id, txn); err != nil {
				return err
			}
			perEpoch[drop.Epoch]++
		}
		destroyed := uint64(len(dropIds))
		if err := l.adjustStats(owner, perEpoch, false, txn); err != nil {
			return err
		}
		if err := l.adjustAccount(owner, destroyed, false, txn); err != nil {
			return err
		}
		unbound := destroyed - bound
		if unbound > 0 {
			bytes := int64(unbound) * RecordSize // #nosec G115
			proceeds = l.exchange.ProceedsMinusFee(bytes)
			l.exchange.Sell(bytes)
			if proceeds.IsPositive() {
				transfers = append(transfers, pendingTransfer{
					from:     l.config.ReserveAccount,
					to:       owner,
					quantity: proceeds,
					memo: fmt.Sprintf(
						"reclaimed storage for %d drops",
						unbound,
					),
				})
			}
		}
		_, err := l.db.AddReceipt(database.Receipt{
			Kind:    "destroy",
			Account: owner,
			Count:   destroyed,
			Detail:  proceeds.String(),
		}, txn)
		return err
	})
	if err != nil {
		l.exchange.Restore(snapshot)
		return market.Asset{}, err
	}
	if err := l.flushTransfers(transfers); err != nil {
		return market.Asset{}, err
	}
	if l.metrics != nil {
		l.metrics.destroyed.Add(float64(len(dropIds)))
	}
	l.publish(event.DestroyEventType, event.DestroyEvent{
		Owner:   owner,
		DropIds: dropIds,
	})
	l.logger.Info(
		"drops destroyed",
		"component", "ledger",
		"owner", owner,
		"count", len(dropIds),
		"proceeds", proceeds.String(),
	)
	return proceeds, nil
}

// DestroyAll removes every drop on the ledger, refunding each owner the
// storage value of their unbound drops. Development tooling only.
func (l *Ledger) DestroyAll() error {
	if err := l.authorizer.RequireAuth(l.config.LedgerAccount); err != nil {
		return err
	}
	var transfers []pendingTransfer
	snapshot := l.exchange.Snapshot()
	txn := l.db.Transaction(true)
	err := txn.Do(func(txn *database.Txn) error {
		accounts, err := l.db.GetAccounts(txn)
		if err != nil {
			return err
		}
		for _, account := range accounts {
			drops, err := l.db.GetDropsByOwner(account.Name, txn)
			if err != nil {
				return err
			}
			var unbound int64
			for _, drop := range drops {
				if !drop.Bound {
					unbound++
				}
				seed := uint64(drop.Seed) // #nosec G115
				if err := l.db.DeleteDrop(seed, txn); err != nil {
					return err
				}
			}
			stats, err := l.db.GetStatsByAccount(account.Name, txn)
			if err != nil {
				return err
			}
			for _, stat := range stats {
				err := l.db.DeleteStat(account.Name, stat.Epoch, txn)
				if err != nil {
					return err
				}
			}
			if err := l.db.DeleteAccount(account.Name, txn); err != nil {
				return err
			}
			if unbound > 0 {
				bytes := unbound * RecordSize
				proceeds := l.exchange.ProceedsMinusFee(bytes)
				l.exchange.Sell(bytes)
				if proceeds.IsPositive() {
					transfers = append(transfers, pendingTransfer{
						from:     l.config.ReserveAccount,
						to:       account.Name,
						quantity: proceeds,
						memo:     "storage refund",
					})
				}
			}
		}
		_, err = l.db.AddReceipt(database.Receipt{
			Kind:    "destroyall",
			Account: l.config.LedgerAccount,
		}, txn)
		return err
	})
	if err != nil {
		l.exchange.Restore(snapshot)
		return err
	}
	if err := l.flushTransfers(transfers); err != nil {
		return err
	}
	l.logger.Warn("all drops destroyed", "component", "ledger")
	return nil
}
