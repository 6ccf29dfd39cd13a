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

package database_test

import (
	"testing"
	"time"

	"github.com/aaroncox/drops/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var dbConfig = &database.Config{
	Logger:       nil,
	PromRegistry: nil,
	DataDir:      "",
}

func TestStateRoundTrip(t *testing.T) {
	db, err := database.New(dbConfig)
	require.NoError(t, err)
	defer db.Close()

	state, err := db.GetState(nil)
	require.NoError(t, err)
	assert.Nil(t, state, "no state row before initialization")

	txn := db.Transaction(true)
	err = txn.Do(func(txn *database.Txn) error {
		return db.SetState(1, false, txn)
	})
	require.NoError(t, err)

	state, err = db.GetState(nil)
	require.NoError(t, err)
	require.NotNil(t, state)
	assert.Equal(t, uint64(1), state.Epoch)
	assert.False(t, state.Enabled)

	// Upsert should replace, not duplicate
	txn = db.Transaction(true)
	err = txn.Do(func(txn *database.Txn) error {
		return db.SetState(2, true, txn)
	})
	require.NoError(t, err)
	state, err = db.GetState(nil)
	require.NoError(t, err)
	require.NotNil(t, state)
	assert.Equal(t, uint64(2), state.Epoch)
	assert.True(t, state.Enabled)
}

func TestEpochAndSnapshot(t *testing.T) {
	db, err := database.New(dbConfig)
	require.NoError(t, err)
	defer db.Close()

	start := time.Unix(1700000000, 0).UTC()
	end := start.Add(time.Hour)
	txn := db.Transaction(true)
	err = txn.Do(func(txn *database.Txn) error {
		if err := db.AddEpoch(1, start, end, txn); err != nil {
			return err
		}
		return db.AddOracleEpoch(1, []string{"oracle1", "oracle2"}, txn)
	})
	require.NoError(t, err)

	epoch, err := db.GetEpoch(1, nil)
	require.NoError(t, err)
	require.NotNil(t, epoch)
	assert.Equal(t, start, epoch.Start.UTC())
	assert.Equal(t, end, epoch.End.UTC())

	snapshot, err := db.GetOracleEpoch(1, nil)
	require.NoError(t, err)
	require.NotNil(t, snapshot)
	assert.Equal(t, []string{"oracle1", "oracle2"}, snapshot.Oracles)
	assert.False(t, snapshot.Completed)

	seed := make([]byte, 32)
	seed[0] = 0xff
	txn = db.Transaction(true)
	err = txn.Do(func(txn *database.Txn) error {
		return db.CompleteOracleEpoch(1, seed, txn)
	})
	require.NoError(t, err)
	snapshot, err = db.GetOracleEpoch(1, nil)
	require.NoError(t, err)
	require.NotNil(t, snapshot)
	assert.True(t, snapshot.Completed)
	assert.Equal(t, seed, snapshot.Seed)

	missing, err := db.GetEpoch(99, nil)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestDuplicateDropSeedAbortsTransaction(t *testing.T) {
	db, err := database.New(dbConfig)
	require.NoError(t, err)
	defer db.Close()

	created := time.Now()
	txn := db.Transaction(true)
	err = txn.Do(func(txn *database.Txn) error {
		return db.AddDrop(42, "alice", 1, false, created, txn)
	})
	require.NoError(t, err)

	// A colliding seed should fail the batch and leave the first row intact
	txn = db.Transaction(true)
	err = txn.Do(func(txn *database.Txn) error {
		if err := db.AddDrop(43, "bob", 1, false, created, txn); err != nil {
			return err
		}
		return db.AddDrop(42, "bob", 1, false, created, txn)
	})
	require.Error(t, err)

	drop, err := db.GetDrop(42, nil)
	require.NoError(t, err)
	require.NotNil(t, drop)
	assert.Equal(t, "alice", drop.Owner)

	drop, err = db.GetDrop(43, nil)
	require.NoError(t, err)
	assert.Nil(t, drop, "rolled back row should not exist")
}

func TestHighBitSeedRoundTrip(t *testing.T) {
	db, err := database.New(dbConfig)
	require.NoError(t, err)
	defer db.Close()

	// Derived seeds routinely land in the upper half of the uint64 range,
	// which the sqlite driver only accepts stored two's-complement
	const seed = uint64(11710983172173830515)
	created := time.Now()
	txn := db.Transaction(true)
	err = txn.Do(func(txn *database.Txn) error {
		return db.AddDrop(seed, "alice", 1, false, created, txn)
	})
	require.NoError(t, err)

	drop, err := db.GetDrop(seed, nil)
	require.NoError(t, err)
	require.NotNil(t, drop)
	assert.Equal(t, seed, uint64(drop.Seed))
	assert.Equal(t, "alice", drop.Owner)

	txn = db.Transaction(true)
	err = txn.Do(func(txn *database.Txn) error {
		if err := db.UpdateDropOwner(seed, "bob", txn); err != nil {
			return err
		}
		return db.UpdateDropBound(seed, true, txn)
	})
	require.NoError(t, err)
	drop, err = db.GetDrop(seed, nil)
	require.NoError(t, err)
	require.NotNil(t, drop)
	assert.Equal(t, "bob", drop.Owner)
	assert.True(t, drop.Bound)

	txn = db.Transaction(true)
	err = txn.Do(func(txn *database.Txn) error {
		return db.DeleteDrop(seed, txn)
	})
	require.NoError(t, err)
	drop, err = db.GetDrop(seed, nil)
	require.NoError(t, err)
	assert.Nil(t, drop)
}

func TestCommitRevealRows(t *testing.T) {
	db, err := database.New(dbConfig)
	require.NoError(t, err)
	defer db.Close()

	hash := make([]byte, 32)
	txn := db.Transaction(true)
	err = txn.Do(func(txn *database.Txn) error {
		if err := db.AddCommitment("oracle1", 1, hash, txn); err != nil {
			return err
		}
		return db.AddReveal("oracle1", 1, "secret", txn)
	})
	require.NoError(t, err)

	commit, err := db.GetCommitment("oracle1", 1, nil)
	require.NoError(t, err)
	require.NotNil(t, commit)
	assert.Equal(t, hash, commit.Hash)

	reveals, err := db.GetRevealsByEpoch(1, nil)
	require.NoError(t, err)
	require.Len(t, reveals, 1)
	assert.Equal(t, "secret", reveals[0].Value)

	// Duplicate commitment for the same oracle and epoch must fail
	txn = db.Transaction(true)
	err = txn.Do(func(txn *database.Txn) error {
		return db.AddCommitment("oracle1", 1, hash, txn)
	})
	require.Error(t, err)
}

func TestReceiptSequence(t *testing.T) {
	db, err := database.New(dbConfig)
	require.NoError(t, err)
	defer db.Close()

	var seq1, seq2 uint64
	txn := db.Transaction(true)
	err = txn.Do(func(txn *database.Txn) error {
		var err error
		seq1, err = db.AddReceipt(database.Receipt{
			Kind:    "generate",
			Account: "alice",
			Epoch:   1,
			Count:   10,
		}, txn)
		return err
	})
	require.NoError(t, err)
	txn = db.Transaction(true)
	err = txn.Do(func(txn *database.Txn) error {
		var err error
		seq2, err = db.AddReceipt(database.Receipt{
			Kind:    "transfer",
			Account: "bob",
			Epoch:   1,
			Count:   2,
		}, txn)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, seq1+1, seq2)

	receipt, err := db.GetReceipt(seq1, nil)
	require.NoError(t, err)
	require.NotNil(t, receipt)
	assert.Equal(t, "generate", receipt.Kind)
	assert.Equal(t, "alice", receipt.Account)

	missing, err := db.GetReceipt(seq2+1, nil)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestAccountAndStatUpserts(t *testing.T) {
	db, err := database.New(dbConfig)
	require.NoError(t, err)
	defer db.Close()

	txn := db.Transaction(true)
	err = txn.Do(func(txn *database.Txn) error {
		if err := db.SetAccount("alice", 10, txn); err != nil {
			return err
		}
		if err := db.SetStat("alice", 1, 4, txn); err != nil {
			return err
		}
		return db.SetStat("alice", 2, 6, txn)
	})
	require.NoError(t, err)

	account, err := db.GetAccount("alice", nil)
	require.NoError(t, err)
	require.NotNil(t, account)
	assert.Equal(t, uint64(10), account.Drops)

	stats, err := db.GetStatsByAccount("alice", nil)
	require.NoError(t, err)
	require.Len(t, stats, 2)
	var total uint64
	for _, stat := range stats {
		total += stat.Drops
	}
	assert.Equal(t, account.Drops, total)

	// Upsert on the same epoch replaces the count
	txn = db.Transaction(true)
	err = txn.Do(func(txn *database.Txn) error {
		return db.SetStat("alice", 2, 5, txn)
	})
	require.NoError(t, err)
	stat, err := db.GetStat("alice", 2, nil)
	require.NoError(t, err)
	require.NotNil(t, stat)
	assert.Equal(t, uint64(5), stat.Drops)
}
