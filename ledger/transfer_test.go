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

package ledger_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/aaroncox/drops/ledger"
	"github.com/aaroncox/drops/market"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// generateFor creates count unbound drops for an owner and returns their
// seeds
func generateFor(
	t *testing.T,
	env *testEnv,
	owner string,
	count uint64,
	entropy string,
) []uint64 {
	t.Helper()
	_, err := env.ledger.Deposit(
		owner,
		ledgerAccount,
		market.NewAsset(100_0000),
		fmt.Sprintf("%d,%s", count, entropy),
	)
	require.NoError(t, err)
	seeds := make([]uint64, 0, count)
	for i := uint64(0); i < count; i++ {
		seeds = append(seeds, ledger.DropSeed(i, entropy))
	}
	return seeds
}

func TestTransferMovesOwnership(t *testing.T) {
	env := setupEnabledLedger(t)
	seeds := generateFor(t, env, "alice", 3, testEntropy)

	require.NoError(t, env.ledger.Transfer("alice", "bob", seeds[:2]))

	for _, seed := range seeds[:2] {
		drop, err := env.db.GetDrop(seed, nil)
		require.NoError(t, err)
		require.NotNil(t, drop)
		assert.Equal(t, "bob", drop.Owner)
	}
	drop, err := env.db.GetDrop(seeds[2], nil)
	require.NoError(t, err)
	require.NotNil(t, drop)
	assert.Equal(t, "alice", drop.Owner)

	checkBalanceInvariant(t, env, "alice")
	checkBalanceInvariant(t, env, "bob")
}

func TestTransferAllOrNothing(t *testing.T) {
	env := setupEnabledLedger(t)
	aliceSeeds := generateFor(t, env, "alice", 2, testEntropy)
	bobSeeds := generateFor(t, env, "bob", 1, testEntropy+" alt")

	// One drop in the batch belongs to bob, so nothing may move
	err := env.ledger.Transfer(
		"alice",
		"bob",
		[]uint64{aliceSeeds[0], bobSeeds[0]},
	)
	require.ErrorIs(t, err, ledger.ErrNotOwner)

	drop, err := env.db.GetDrop(aliceSeeds[0], nil)
	require.NoError(t, err)
	require.NotNil(t, drop)
	assert.Equal(t, "alice", drop.Owner)
	checkBalanceInvariant(t, env, "alice")
	checkBalanceInvariant(t, env, "bob")
}

func TestTransferToUnknownAccountRejected(t *testing.T) {
	env := setupEnabledLedger(t)
	seeds := generateFor(t, env, "alice", 1, testEntropy)
	err := env.ledger.Transfer("alice", "nobody", seeds)
	require.ErrorIs(t, err, ledger.ErrAccountNotFound)
}

func TestTransferBoundDropRejected(t *testing.T) {
	env := setupEnabledLedger(t)
	_, err := env.ledger.Mint("alice", 1, testEntropy)
	require.NoError(t, err)
	seed := ledger.DropSeed(0, testEntropy)
	err = env.ledger.Transfer("alice", "bob", []uint64{seed})
	require.ErrorIs(t, err, ledger.ErrDropBound)
}

func TestTransferEmptiedAccountRowRemoved(t *testing.T) {
	env := setupEnabledLedger(t)
	seeds := generateFor(t, env, "alice", 1, testEntropy)
	require.NoError(t, env.ledger.Transfer("alice", "bob", seeds))

	account, err := env.db.GetAccount("alice", nil)
	require.NoError(t, err)
	assert.Nil(t, account)
	stats, err := env.db.GetStatsByAccount("alice", nil)
	require.NoError(t, err)
	assert.Empty(t, stats)
	checkBalanceInvariant(t, env, "bob")
}

func TestBindSellsStorageBack(t *testing.T) {
	env := setupEnabledLedger(t)
	seeds := generateFor(t, env, "alice", 2, testEntropy)
	env.treasury.transfers = nil

	proceeds, err := env.ledger.Bind("alice", seeds)
	require.NoError(t, err)
	assert.True(t, proceeds.IsPositive())

	for _, seed := range seeds {
		drop, err := env.db.GetDrop(seed, nil)
		require.NoError(t, err)
		require.NotNil(t, drop)
		assert.True(t, drop.Bound)
	}
	require.Len(t, env.treasury.transfers, 1)
	assert.Equal(t, "alice", env.treasury.transfers[0].To)
	assert.Equal(t, proceeds, env.treasury.transfers[0].Quantity)

	// Binding an already bound drop fails
	_, err = env.ledger.Bind("alice", seeds)
	require.ErrorIs(t, err, ledger.ErrDropBound)
}

func TestUnbindLifecycle(t *testing.T) {
	env := setupEnabledLedger(t)
	seeds := generateFor(t, env, "alice", 2, testEntropy)
	_, err := env.ledger.Bind("alice", seeds)
	require.NoError(t, err)

	// Unbinding an unbound drop is rejected
	err = env.ledger.Unbind("alice", []uint64{12345})
	require.Error(t, err)

	require.NoError(t, env.ledger.Unbind("alice", seeds))

	// Only one request at a time
	err = env.ledger.Unbind("alice", seeds[:1])
	require.ErrorIs(t, err, ledger.ErrUnbindPending)

	// Fulfillment arrives as a deposit with the "unbind" memo
	result, err := env.ledger.Deposit(
		"alice",
		ledgerAccount,
		market.NewAsset(10_0000),
		"unbind",
	)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, uint64(2), result.Drops)
	assert.True(t, result.Cost.IsPositive())

	for _, seed := range seeds {
		drop, err := env.db.GetDrop(seed, nil)
		require.NoError(t, err)
		require.NotNil(t, drop)
		assert.False(t, drop.Bound)
	}
	request, err := env.db.GetUnbindRequest("alice", nil)
	require.NoError(t, err)
	assert.Nil(t, request)
}

func TestCancelUnbind(t *testing.T) {
	env := setupEnabledLedger(t)
	seeds := generateFor(t, env, "alice", 1, testEntropy)
	_, err := env.ledger.Bind("alice", seeds)
	require.NoError(t, err)

	require.ErrorIs(t, env.ledger.CancelUnbind("alice"), ledger.ErrNoUnbindRequest)
	require.NoError(t, env.ledger.Unbind("alice", seeds))
	require.NoError(t, env.ledger.CancelUnbind("alice"))

	// Fulfillment deposit now has nothing to fulfill
	_, err = env.ledger.Deposit(
		"alice",
		ledgerAccount,
		market.NewAsset(10_0000),
		"unbind",
	)
	require.ErrorIs(t, err, ledger.ErrNoUnbindRequest)
}

func TestDestroyReleasesStorage(t *testing.T) {
	env := setupEnabledLedger(t)
	seeds := generateFor(t, env, "alice", 3, testEntropy)
	env.treasury.transfers = nil
	storageBefore, _ := env.exchange.Reserves()

	proceeds, err := env.ledger.Destroy("alice", seeds)
	require.NoError(t, err)
	assert.True(t, proceeds.IsPositive())

	for _, seed := range seeds {
		drop, err := env.db.GetDrop(seed, nil)
		require.NoError(t, err)
		assert.Nil(t, drop)
	}
	account, err := env.db.GetAccount("alice", nil)
	require.NoError(t, err)
	assert.Nil(t, account)
	checkBalanceInvariant(t, env, "alice")

	storageAfter, _ := env.exchange.Reserves()
	assert.Equal(t, storageBefore+3*ledger.RecordSize, storageAfter)
}

func TestDestroyBoundDropsReleaseNothing(t *testing.T) {
	env := setupEnabledLedger(t)
	_, err := env.ledger.Mint("alice", 2, testEntropy)
	require.NoError(t, err)
	seeds := []uint64{
		ledger.DropSeed(0, testEntropy),
		ledger.DropSeed(1, testEntropy),
	}
	storageBefore, _ := env.exchange.Reserves()

	proceeds, err := env.ledger.Destroy("alice", seeds)
	require.NoError(t, err)
	assert.False(t, proceeds.IsPositive())
	assert.Empty(t, env.treasury.transfers)

	storageAfter, _ := env.exchange.Reserves()
	assert.Equal(t, storageBefore, storageAfter)
}

func TestDestroyAllOrNothing(t *testing.T) {
	env := setupEnabledLedger(t)
	aliceSeeds := generateFor(t, env, "alice", 1, testEntropy)
	bobSeeds := generateFor(t, env, "bob", 1, testEntropy+" alt")
	env.treasury.transfers = nil

	_, err := env.ledger.Destroy("alice", []uint64{aliceSeeds[0], bobSeeds[0]})
	require.ErrorIs(t, err, ledger.ErrNotOwner)

	// The aborted batch must not move currency either
	assert.Empty(t, env.treasury.transfers)

	drop, err := env.db.GetDrop(aliceSeeds[0], nil)
	require.NoError(t, err)
	assert.NotNil(t, drop)
	checkBalanceInvariant(t, env, "alice")
	checkBalanceInvariant(t, env, "bob")
}

func TestBalanceInvariantAfterMixedSequence(t *testing.T) {
	env := setupEnabledLedger(t)
	aliceSeeds := generateFor(t, env, "alice", 4, testEntropy)

	// Cross an epoch boundary so stats span multiple epochs
	epoch, err := env.db.GetEpoch(1, nil)
	require.NoError(t, err)
	env.clock.now = epoch.End.Add(time.Minute)
	moreSeeds := generateFor(t, env, "alice", 2, testEntropy+" second batch")

	require.NoError(t, env.ledger.Transfer("alice", "bob", aliceSeeds[:2]))
	_, err = env.ledger.Destroy("alice", []uint64{aliceSeeds[2], moreSeeds[0]})
	require.NoError(t, err)
	_, err = env.ledger.Bind("alice", []uint64{moreSeeds[1]})
	require.NoError(t, err)
	require.NoError(t, env.ledger.Transfer("bob", "alice", aliceSeeds[:1]))

	checkBalanceInvariant(t, env, "alice")
	checkBalanceInvariant(t, env, "bob")

	account, err := env.db.GetAccount("alice", nil)
	require.NoError(t, err)
	require.NotNil(t, account)
	assert.Equal(t, uint64(3), account.Drops)
	account, err = env.db.GetAccount("bob", nil)
	require.NoError(t, err)
	require.NotNil(t, account)
	assert.Equal(t, uint64(1), account.Drops)
}

func TestDestroyAllRefundsOwners(t *testing.T) {
	env := setupEnabledLedger(t)
	generateFor(t, env, "alice", 2, testEntropy)
	generateFor(t, env, "bob", 1, testEntropy+" alt")
	env.treasury.transfers = nil

	require.NoError(t, env.ledger.DestroyAll())

	accounts, err := env.db.GetAccounts(nil)
	require.NoError(t, err)
	assert.Empty(t, accounts)
	count, err := env.db.CountDrops(nil)
	require.NoError(t, err)
	assert.Zero(t, count)

	// One storage refund per owner holding unbound drops
	refunded := make(map[string]bool)
	for _, transfer := range env.treasury.transfers {
		refunded[transfer.To] = true
	}
	assert.True(t, refunded["alice"])
	assert.True(t, refunded["bob"])
}
