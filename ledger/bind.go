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
	"github.com/aaroncox/drops/market"
)

// Bind moves unbound drops into the owner's own storage, selling their
// market bytes back and paying the owner the proceeds
func (l *Ledger) Bind(owner string, dropIds []uint64) (market.Asset, error) {
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
			if drop.Owner != owner {
				return fmt.Errorf("drop %d: %w %s", id, ErrNotOwner, owner)
			}
			if err := l.db.UpdateDropBound(id, true, txn); err != nil {
				return err
			}
		}
		bytes := int64(len(dropIds)) * RecordSize
		// Proceeds are quoted before the sale moves the reserves
		proceeds = l.exchange.ProceedsMinusFee(bytes)
		l.exchange.Sell(bytes)
		if proceeds.IsPositive() {
			transfers = append(transfers, pendingTransfer{
				from:     l.config.ReserveAccount,
				to:       owner,
				quantity: proceeds,
				memo: fmt.Sprintf(
					"reclaimed storage for %d drops",
					len(dropIds),
				),
			})
		}
		_, err := l.db.AddReceipt(database.Receipt{
			Kind:    "bind",
			Account: owner,
			Count:   uint64(len(dropIds)),
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
	l.logger.Info(
		"drops bound",
		"component", "ledger",
		"owner", owner,
		"count", len(dropIds),
		"proceeds", proceeds.String(),
	)
	return proceeds, nil
}

// Unbind records a request to move bound drops back into market storage.
// The request is fulfilled by a later deposit carrying the "unbind" memo
// that pays for the repurchased bytes.
func (l *Ledger) Unbind(owner string, dropIds []uint64) error {
	if err := l.authorizer.RequireAuth(owner); err != nil {
		return err
	}
	if len(dropIds) == 0 {
		return fmt.Errorf("no drops specified")
	}
	txn := l.db.Transaction(true)
	err := txn.Do(func(txn *database.Txn) error {
		if err := l.requireEnabled(txn); err != nil {
			return err
		}
		existing, err := l.db.GetUnbindRequest(owner, txn)
		if err != nil {
			return err
		}
		if existing != nil {
			return fmt.Errorf("%s: %w", owner, ErrUnbindPending)
		}
		for _, id := range dropIds {
			drop, err := l.db.GetDrop(id, txn)
			if err != nil {
				return err
			}
			if drop == nil {
				return fmt.Errorf("drop %d: %w", id, ErrDropNotFound)
			}
			if !drop.Bound {
				return fmt.Errorf("drop %d: %w", id, ErrDropNotBound)
			}
			if drop.Owner != owner {
				return fmt.Errorf("drop %d: %w %s", id, ErrNotOwner, owner)
			}
		}
		return l.db.AddUnbindRequest(owner, dropIds, txn)
	})
	if err != nil {
		return err
	}
	l.logger.Info(
		"unbind requested",
		"component", "ledger",
		"owner", owner,
		"count", len(dropIds),
	)
	return nil
}

// CancelUnbind withdraws a pending unbind request
func (l *Ledger) CancelUnbind(owner string) error {
	if err := l.authorizer.RequireAuth(owner); err != nil {
		return err
	}
	txn := l.db.Transaction(true)
	return txn.Do(func(txn *database.Txn) error {
		existing, err := l.db.GetUnbindRequest(owner, txn)
		if err != nil {
			return err
		}
		if existing == nil {
			return fmt.Errorf("%s: %w", owner, ErrNoUnbindRequest)
		}
		return l.db.DeleteUnbindRequest(owner, txn)
	})
}

// fulfillUnbind completes a pending unbind request using an incoming
// deposit to repurchase the storage bytes
func (l *Ledger) fulfillUnbind(
	owner string,
	quantity market.Asset,
) (*GenerateResult, error) {
	var ret *GenerateResult
	var advanced []advancedEpoch
	var transfers []pendingTransfer
	snapshot := l.exchange.Snapshot()
	txn := l.db.Transaction(true)
	err := txn.Do(func(txn *database.Txn) error {
		if err := l.requireEnabled(txn); err != nil {
			return err
		}
		var err error
		advanced, err = l.ensureCurrent(txn)
		if err != nil {
			return err
		}
		request, err := l.db.GetUnbindRequest(owner, txn)
		if err != nil {
			return err
		}
		if request == nil {
			return fmt.Errorf("%s: %w", owner, ErrNoUnbindRequest)
		}
		bytes := int64(len(request.DropIds)) * (RecordSize + PurchaseBuffer)
		if _, err := l.exchange.Buy(bytes); err != nil {
			return err
		}
		cost := l.exchange.CostWithFee(bytes)
		if quantity.Amount < cost.Amount {
			return fmt.Errorf(
				"%w: %s deposited, %s required to unbind %d drops",
				ErrInsufficientPayment,
				quantity,
				cost,
				len(request.DropIds),
			)
		}
		for _, id := range request.DropIds {
			drop, err := l.db.GetDrop(id, txn)
			if err != nil {
				return err
			}
			if drop == nil {
				return fmt.Errorf("drop %d: %w", id, ErrDropNotFound)
			}
			if !drop.Bound {
				return fmt.Errorf("drop %d: %w", id, ErrDropNotBound)
			}
			if drop.Owner != owner {
				return fmt.Errorf("drop %d: %w %s", id, ErrNotOwner, owner)
			}
			if err := l.db.UpdateDropBound(id, false, txn); err != nil {
				return err
			}
		}
		refund := quantity.Sub(cost)
		transfers = l.settlePurchase(owner, cost, refund)
		if err := l.db.DeleteUnbindRequest(owner, txn); err != nil {
			return err
		}
		state, err := l.db.GetState(txn)
		if err != nil {
			return err
		}
		count := uint64(len(request.DropIds))
		_, err = l.db.AddReceipt(database.Receipt{
			Kind:    "unbind",
			Account: owner,
			Epoch:   state.Epoch,
			Count:   count,
			Detail:  cost.String(),
		}, txn)
		if err != nil {
			return err
		}
		ret = &GenerateResult{
			Drops:  count,
			Epoch:  state.Epoch,
			Cost:   cost,
			Refund: refund,
		}
		return nil
	})
	if err != nil {
		l.exchange.Restore(snapshot)
		return nil, err
	}
	if err := l.flushTransfers(transfers); err != nil {
		return nil, err
	}
	l.notifyAdvance(advanced)
	l.logger.Info(
		"unbind fulfilled",
		"component", "ledger",
		"owner", owner,
		"count", ret.Drops,
		"cost", ret.Cost.String(),
	)
	return ret, nil
}
