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
	"testing"
	"time"

	"github.com/aaroncox/drops/ledger"
	"github.com/aaroncox/drops/market"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdvanceBeforeEpochEndFails(t *testing.T) {
	env := setupEnabledLedger(t)
	_, err := env.ledger.Advance()
	require.Error(t, err)
}

func TestAdvanceOpensNextEpoch(t *testing.T) {
	env := setupEnabledLedger(t)
	require.NoError(t, env.ledger.AddOracle("oracle1"))

	first, err := env.db.GetEpoch(1, nil)
	require.NoError(t, err)
	require.NotNil(t, first)

	env.clock.now = first.End.Add(time.Second)
	next, err := env.ledger.Advance()
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, uint64(2), next.Number)
	assert.Equal(t, first.End.UTC(), next.Start.UTC())
	assert.Equal(t, first.End.Add(time.Hour).UTC(), next.End.UTC())

	// The new epoch snapshots the current allow-list
	snapshot, err := env.db.GetOracleEpoch(2, nil)
	require.NoError(t, err)
	require.NotNil(t, snapshot)
	assert.Equal(t, []string{"oracle1"}, snapshot.Oracles)

	state, err := env.db.GetState(nil)
	require.NoError(t, err)
	require.NotNil(t, state)
	assert.Equal(t, uint64(2), state.Epoch)

	// An immediate second advance aborts, since the new epoch is open
	_, err = env.ledger.Advance()
	require.Error(t, err)
	checkEpochGauge(t, env, 2)
}

func TestSnapshotFrozenAgainstAllowListChanges(t *testing.T) {
	env := setupEnabledLedger(t)
	require.NoError(t, env.ledger.AddOracle("oracle1"))

	first, err := env.db.GetEpoch(1, nil)
	require.NoError(t, err)
	env.clock.now = first.End.Add(time.Second)
	_, err = env.ledger.Advance()
	require.NoError(t, err)

	// Later allow-list changes must not affect epoch 2's snapshot
	require.NoError(t, env.ledger.AddOracle("oracle2"))
	require.NoError(t, env.ledger.RemoveOracle("oracle1"))
	snapshot, err := env.db.GetOracleEpoch(2, nil)
	require.NoError(t, err)
	require.NotNil(t, snapshot)
	assert.Equal(t, []string{"oracle1"}, snapshot.Oracles)
}

func TestDepositCatchesUpEpochs(t *testing.T) {
	env := setupEnabledLedger(t)
	first, err := env.db.GetEpoch(1, nil)
	require.NoError(t, err)

	// Three full phases pass without activity
	env.clock.now = first.End.Add(2*time.Hour + time.Minute)
	result, err := env.ledger.Deposit(
		"alice",
		ledgerAccount,
		market.NewAsset(10_0000),
		"1,"+testEntropy,
	)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, uint64(4), result.Epoch)

	epochs, err := env.db.GetEpochs(nil)
	require.NoError(t, err)
	assert.Len(t, epochs, 4)
	current := epochs[len(epochs)-1]
	assert.True(t, env.clock.Now().After(current.Start))
	assert.True(t, env.clock.Now().Before(current.End))
}

func TestAdvanceCapBoundsCatchUp(t *testing.T) {
	env := setupEnabledLedger(t)
	first, err := env.db.GetEpoch(1, nil)
	require.NoError(t, err)

	// Jump far past anything the cap permits
	env.clock.now = first.End.Add(time.Duration(ledger.DefaultAdvanceCap+10) * time.Hour)
	_, err = env.ledger.Deposit(
		"alice",
		ledgerAccount,
		market.NewAsset(10_0000),
		"1,"+testEntropy,
	)
	require.ErrorIs(t, err, ledger.ErrAdvanceCapExceeded)

	// The failed catch-up leaves no partial epochs behind, and the
	// exported gauge still reports the surviving epoch
	epochs, err := env.db.GetEpochs(nil)
	require.NoError(t, err)
	assert.Len(t, epochs, 1)
	checkEpochGauge(t, env, 1)
}

func TestEnsureCurrentRequiresEnabled(t *testing.T) {
	env := setupLedger(t)
	require.NoError(t, env.ledger.Init())

	first, err := env.db.GetEpoch(1, nil)
	require.NoError(t, err)
	env.clock.now = first.End.Add(2 * time.Hour)

	// A disabled ledger must not open epochs during catch-up
	require.ErrorIs(t, env.ledger.EnsureCurrent(), ledger.ErrDisabled)
	epochs, err := env.db.GetEpochs(nil)
	require.NoError(t, err)
	assert.Len(t, epochs, 1)
}

func TestEnsureCurrentNoOpInsideEpoch(t *testing.T) {
	env := setupEnabledLedger(t)
	require.NoError(t, env.ledger.EnsureCurrent())
	epochs, err := env.db.GetEpochs(nil)
	require.NoError(t, err)
	assert.Len(t, epochs, 1)
}
