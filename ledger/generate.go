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
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"strconv"

	"github.com/aaroncox/drops/database"
	"github.com/aaroncox/drops/event"
	"github.com/aaroncox/drops/market"
)

// GenerateResult summarizes a completed generation
type GenerateResult struct {
	Drops      uint64
	Epoch      uint64
	Cost       market.Asset
	Refund     market.Asset
	Total      uint64
	EpochTotal uint64
}

// DropSeed derives a drop identifier from its ordinal and the deposit
// entropy, taking the low 64 bits of the digest
func DropSeed(ordinal uint64, entropy string) uint64 {
	digest := sha256.Sum256(
		[]byte(strconv.FormatUint(ordinal, 10) + entropy),
	)
	return binary.LittleEndian.Uint64(digest[:8])
}

// Deposit handles an incoming treasury transfer notification. Deposits
// to other accounts, outgoing transfers, storage market refunds, and
// "bypass" memos are ignored. Everything else must carry a memo that
// either generates drops or fulfills a pending unbind request.
func (l *Ledger) Deposit(
	from string,
	to string,
	quantity market.Asset,
	memo string,
) (*GenerateResult, error) {
	if from == l.config.ReserveAccount {
		return nil, nil
	}
	if to != l.config.LedgerAccount {
		return nil, nil
	}
	if from == l.config.LedgerAccount {
		return nil, nil
	}
	if memo == memoBypass {
		return nil, nil
	}
	parsed, err := parseDepositMemo(memo)
	if err != nil {
		return nil, err
	}
	switch parsed.kind {
	case memoKindUnbind:
		return l.fulfillUnbind(from, quantity)
	default:
		return l.generate(from, quantity, parsed.count, parsed.entropy)
	}
}

func (l *Ledger) generate(
	owner string,
	quantity market.Asset,
	count uint64,
	entropy string,
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
		state, err := l.db.GetState(txn)
		if err != nil {
			return err
		}
		bytes, total, epochTotal, err := l.storageFootprint(
			owner,
			state.Epoch,
			count,
			txn,
		)
		if err != nil {
			return err
		}
		if _, err := l.exchange.Buy(bytes); err != nil {
			return err
		}
		cost := l.exchange.CostWithFee(bytes)
		if quantity.Amount < cost.Amount {
			return fmt.Errorf(
				"%w: %s deposited, %s required for %d drops",
				ErrInsufficientPayment,
				quantity,
				cost,
				count,
			)
		}
		created := l.now()
		for i := uint64(0); i < count; i++ {
			seed := DropSeed(i, entropy)
			err := l.db.AddDrop(seed, owner, state.Epoch, false, created, txn)
			if err != nil {
				return err
			}
		}
		if err := l.db.SetAccount(owner, total, txn); err != nil {
			return err
		}
		if err := l.db.SetStat(owner, state.Epoch, epochTotal, txn); err != nil {
			return err
		}
		refund := quantity.Sub(cost)
		transfers = l.settlePurchase(owner, cost, refund)
		_, err = l.db.AddReceipt(database.Receipt{
			Kind:    "generate",
			Account: owner,
			Epoch:   state.Epoch,
			Count:   count,
			Detail:  cost.String(),
		}, txn)
		if err != nil {
			return err
		}
		ret = &GenerateResult{
			Drops:      count,
			Epoch:      state.Epoch,
			Cost:       cost,
			Refund:     refund,
			Total:      total,
			EpochTotal: epochTotal,
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
	if l.metrics != nil {
		l.metrics.generated.Add(float64(count))
	}
	l.publish(event.GenerateEventType, event.GenerateEvent{
		Owner: owner,
		Epoch: ret.Epoch,
		Count: count,
		Bound: false,
	})
	l.logger.Info(
		"drops generated",
		"component", "ledger",
		"owner", owner,
		"count", count,
		"epoch", ret.Epoch,
		"cost", ret.Cost.String(),
		"refund", ret.Refund.String(),
	)
	return ret, nil
}

// Mint creates bound drops paid for by the owner's own storage quota, so
// no market purchase or deposit is involved
func (l *Ledger) Mint(
	owner string,
	count uint64,
	entropy string,
) (*GenerateResult, error) {
	if err := l.authorizer.RequireAuth(owner); err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, fmt.Errorf("%w: count must be greater than zero", ErrInvalidMemo)
	}
	if count > MaxGenerateCount {
		return nil, fmt.Errorf(
			"%w: count %d exceeds maximum %d",
			ErrInvalidMemo,
			count,
			MaxGenerateCount,
		)
	}
	if len(entropy) <= MinimumEntropyLength {
		return nil, fmt.Errorf(
			"%w: entropy must be longer than %d characters",
			ErrInvalidMemo,
			MinimumEntropyLength,
		)
	}
	var ret *GenerateResult
	var advanced []advancedEpoch
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
		state, err := l.db.GetState(txn)
		if err != nil {
			return err
		}
		_, total, epochTotal, err := l.storageFootprint(
			owner,
			state.Epoch,
			count,
			txn,
		)
		if err != nil {
			return err
		}
		created := l.now()
		for i := uint64(0); i < count; i++ {
			seed := DropSeed(i, entropy)
			err := l.db.AddDrop(seed, owner, state.Epoch, true, created, txn)
			if err != nil {
				return err
			}
		}
		if err := l.db.SetAccount(owner, total, txn); err != nil {
			return err
		}
		if err := l.db.SetStat(owner, state.Epoch, epochTotal, txn); err != nil {
			return err
		}
		_, err = l.db.AddReceipt(database.Receipt{
			Kind:    "mint",
			Account: owner,
			Epoch:   state.Epoch,
			Count:   count,
		}, txn)
		if err != nil {
			return err
		}
		ret = &GenerateResult{
			Drops:      count,
			Epoch:      state.Epoch,
			Total:      total,
			EpochTotal: epochTotal,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	l.notifyAdvance(advanced)
	if l.metrics != nil {
		l.metrics.generated.Add(float64(count))
	}
	l.publish(event.GenerateEventType, event.GenerateEvent{
		Owner: owner,
		Epoch: ret.Epoch,
		Count: count,
		Bound: true,
	})
	l.logger.Info(
		"drops minted",
		"component", "ledger",
		"owner", owner,
		"count", count,
		"epoch", ret.Epoch,
	)
	return ret, nil
}

// storageFootprint returns the bytes a generation must purchase along
// with the owner's resulting account and epoch totals. New account and
// stat rows add their own footprint.
func (l *Ledger) storageFootprint(
	owner string,
	epoch uint64,
	count uint64,
	txn *database.Txn,
) (bytes int64, total uint64, epochTotal uint64, err error) {
	bytes = int64(count) * (RecordSize + PurchaseBuffer) // #nosec G115
	account, err := l.db.GetAccount(owner, txn)
	if err != nil {
		return 0, 0, 0, err
	}
	total = count
	if account == nil {
		bytes += AccountRow
	} else {
		total += account.Drops
	}
	stat, err := l.db.GetStat(owner, epoch, txn)
	if err != nil {
		return 0, 0, 0, err
	}
	epochTotal = count
	if stat == nil {
		bytes += StatRow
	} else {
		epochTotal += stat.Drops
	}
	return bytes, total, epochTotal, nil
}

// settlePurchase queues the storage cost for the market reserve and any
// overpayment back to the owner
func (l *Ledger) settlePurchase(
	owner string,
	cost market.Asset,
	refund market.Asset,
) []pendingTransfer {
	var transfers []pendingTransfer
	if cost.IsPositive() {
		transfers = append(transfers, pendingTransfer{
			from:     l.config.LedgerAccount,
			to:       l.config.ReserveAccount,
			quantity: cost,
			memo:     "storage purchase",
		})
	}
	if refund.IsPositive() {
		transfers = append(transfers, pendingTransfer{
			from:     l.config.LedgerAccount,
			to:       owner,
			quantity: refund,
			memo:     "refund",
		})
	}
	return transfers
}
