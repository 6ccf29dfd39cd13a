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

package market_test

import (
	"testing"

	"github.com/aaroncox/drops/market"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestExchange() *market.Exchange {
	// 64GB of storage against 1M units of currency
	return market.NewExchange(
		64*1024*1024*1024,
		market.NewAsset(1_000_000_0000),
	)
}

func TestAssetString(t *testing.T) {
	assert.Equal(t, "1.0000 EOS", market.NewAsset(10000).String())
	assert.Equal(t, "0.0001 EOS", market.NewAsset(1).String())
	assert.Equal(t, "-0.5000 EOS", market.NewAsset(-5000).String())
	assert.Equal(t, "123.4567 EOS", market.NewAsset(1234567).String())
}

func TestBancorClamping(t *testing.T) {
	assert.GreaterOrEqual(t, market.BancorInput(100, 100, 0), int64(0))
	assert.GreaterOrEqual(t, market.BancorOutput(100, 100, 0), int64(0))
}

func TestBuyMovesReserves(t *testing.T) {
	ex := newTestExchange()
	storageBefore, currencyBefore := ex.Reserves()
	cost, err := ex.Buy(1024)
	require.NoError(t, err)
	assert.True(t, cost.Amount >= 0)
	storageAfter, currencyAfter := ex.Reserves()
	assert.Equal(t, storageBefore-1024, storageAfter)
	assert.Equal(t, currencyBefore.Amount+cost.Amount, currencyAfter.Amount)
}

func TestBuyPriceIncreasesAsReserveShrinks(t *testing.T) {
	ex := newTestExchange()
	const bytes = 1024 * 1024 * 1024
	first, err := ex.Buy(bytes)
	require.NoError(t, err)
	second, err := ex.Buy(bytes)
	require.NoError(t, err)
	assert.Greater(
		t,
		second.Amount,
		first.Amount,
		"shrinking storage reserve must raise the unit price",
	)
}

func TestNonPositiveTradesRejected(t *testing.T) {
	ex := newTestExchange()
	storageBefore, currencyBefore := ex.Reserves()

	for _, bytes := range []int64{0, -1, -1 << 40} {
		_, err := ex.Buy(bytes)
		require.ErrorIs(t, err, market.ErrInvalidTrade, "bytes %d", bytes)
		assert.Zero(t, ex.CostWithFee(bytes).Amount)
		assert.Zero(t, ex.Sell(bytes).Amount)
		assert.Zero(t, ex.ProceedsMinusFee(bytes).Amount)
	}

	storageAfter, currencyAfter := ex.Reserves()
	assert.Equal(t, storageBefore, storageAfter)
	assert.Equal(t, currencyBefore, currencyAfter)
}

func TestBuyExceedingReserveFails(t *testing.T) {
	ex := market.NewExchange(1000, market.NewAsset(1000))
	_, err := ex.Buy(1000)
	require.ErrorIs(t, err, market.ErrInsufficientReserve)
	_, err = ex.Buy(2000)
	require.ErrorIs(t, err, market.ErrInsufficientReserve)
}

func TestCostIncreasesWithBytes(t *testing.T) {
	ex := newTestExchange()
	var prev int64
	for _, bytes := range []int64{1 << 10, 1 << 16, 1 << 20, 1 << 24, 1 << 28} {
		cost := ex.CostWithFee(bytes)
		assert.Greater(t, cost.Amount, prev, "cost must grow with bytes")
		prev = cost.Amount
	}
}

func TestFeeAsymmetry(t *testing.T) {
	ex := newTestExchange()
	const bytes = 1024 * 1024
	cost := ex.CostWithFee(bytes)
	proceeds := ex.ProceedsMinusFee(bytes)
	// Fees on both sides mean an immediate round trip loses currency
	assert.Greater(t, cost.Amount, proceeds.Amount)
}

func TestSnapshotRestore(t *testing.T) {
	ex := newTestExchange()
	snapshot := ex.Snapshot()
	_, err := ex.Buy(4096)
	require.NoError(t, err)
	ex.Restore(snapshot)
	storage, currency := ex.Reserves()
	origStorage, origCurrency := newTestExchange().Reserves()
	assert.Equal(t, origStorage, storage)
	assert.Equal(t, origCurrency, currency)
}

func TestSellReturnsProceeds(t *testing.T) {
	ex := newTestExchange()
	const bytes = 1024 * 1024
	_, err := ex.Buy(bytes)
	require.NoError(t, err)
	expected := ex.ProceedsMinusFee(bytes)
	raw := ex.Sell(bytes)
	assert.GreaterOrEqual(t, raw.Amount, expected.Amount)
}
