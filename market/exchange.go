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

package market

import (
	"errors"
	"sync"
)

// Fee taken on both sides of the storage market, expressed as the retained
// ratio (buyers pay cost/0.995, sellers receive proceeds*0.995).
const feeRetainRatio = 0.995

var (
	ErrInsufficientReserve = errors.New(
		"purchase exceeds available storage reserve",
	)
	ErrInvalidTrade = errors.New("trade size must be positive")
)

// Exchange is a constant-product market holding a reserve of storage bytes
// and a reserve of system currency. It prices purchases and sales of
// storage bytes for the ledger. The exchange itself is owned by the host
// system; the ledger only executes trades against it and reads the
// resulting prices.
type Exchange struct {
	mu              sync.Mutex
	storageReserve  int64
	currencyReserve int64
}

// NewExchange creates an exchange with the given opening reserves.
func NewExchange(storageBytes int64, currency Asset) *Exchange {
	return &Exchange{
		storageReserve:  storageBytes,
		currencyReserve: currency.Amount,
	}
}

// Reserves returns the current reserves.
func (e *Exchange) Reserves() (storageBytes int64, currency Asset) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.storageReserve, Asset{Amount: e.currencyReserve}
}

// Buy executes a purchase of storage bytes, moving both reserves. The
// currency paid in is determined by the curve at the moment of purchase.
// Callers needing the fee-adjusted cost must call CostWithFee after the
// purchase, since the purchase itself moves the reserves.
func (e *Exchange) Buy(bytes int64) (Asset, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if bytes <= 0 {
		return Asset{}, ErrInvalidTrade
	}
	if bytes >= e.storageReserve {
		return Asset{}, ErrInsufficientReserve
	}
	cost := BancorInput(e.storageReserve, e.currencyReserve, bytes)
	e.storageReserve -= bytes
	e.currencyReserve += cost
	return Asset{Amount: cost}, nil
}

// Sell executes a sale of storage bytes back to the market, moving both
// reserves, and returns the raw (pre-fee) proceeds.
func (e *Exchange) Sell(bytes int64) Asset {
	e.mu.Lock()
	defer e.mu.Unlock()
	if bytes <= 0 {
		return Asset{}
	}
	out := BancorOutput(e.storageReserve, e.currencyReserve, bytes)
	e.storageReserve += bytes
	e.currencyReserve -= out
	return Asset{Amount: out}
}

// CostWithFee returns the cost of the given bytes against the current
// reserves, marked up by the market fee.
func (e *Exchange) CostWithFee(bytes int64) Asset {
	e.mu.Lock()
	defer e.mu.Unlock()
	if bytes <= 0 {
		return Asset{}
	}
	cost := BancorInput(e.storageReserve, e.currencyReserve, bytes)
	return Asset{Amount: int64(float64(cost) / feeRetainRatio)}
}

// ProceedsMinusFee returns the currency released by selling the given
// bytes against the current reserves, marked down by the market fee.
func (e *Exchange) ProceedsMinusFee(bytes int64) Asset {
	e.mu.Lock()
	defer e.mu.Unlock()
	if bytes <= 0 {
		return Asset{}
	}
	out := BancorOutput(e.storageReserve, e.currencyReserve, bytes)
	return Asset{Amount: int64(float64(out) * feeRetainRatio)}
}

// Snapshot is an opaque copy of the reserves at a point in time
type Snapshot struct {
	storageReserve  int64
	currencyReserve int64
}

// Snapshot captures the current reserves so a trade can be unwound when
// the enclosing ledger transaction aborts
func (e *Exchange) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Snapshot{
		storageReserve:  e.storageReserve,
		currencyReserve: e.currencyReserve,
	}
}

// Restore resets the reserves to a previously captured snapshot
func (e *Exchange) Restore(s Snapshot) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.storageReserve = s.storageReserve
	e.currencyReserve = s.currencyReserve
}
