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

package oracle

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/aaroncox/drops/database"
)

// EpochDigest derives an epoch's randomness from its reveal pre-images.
// Reveals are sorted lexicographically so the digest is independent of
// reveal order.
func EpochDigest(epoch uint64, reveals []string) []byte {
	sorted := make([]string, len(reveals))
	copy(sorted, reveals)
	sort.Strings(sorted)
	h := sha256.New()
	h.Write([]byte(strconv.FormatUint(epoch, 10)))
	for _, reveal := range sorted {
		h.Write([]byte(reveal))
	}
	return h.Sum(nil)
}

// TokenDigest derives a drop's randomness for an epoch by hashing the
// lowercase hex encoding of the epoch digest with the decimal drop seed
func TokenDigest(epochSeed []byte, dropSeed uint64) []byte {
	h := sha256.New()
	h.Write([]byte(hex.EncodeToString(epochSeed)))
	h.Write([]byte(strconv.FormatUint(dropSeed, 10)))
	return h.Sum(nil)
}

// ComputeEpoch returns the frozen randomness digest for a completed epoch
func (e *Engine) ComputeEpoch(epoch uint64) ([]byte, error) {
	snapshot, err := e.db.GetOracleEpoch(epoch, nil)
	if err != nil {
		return nil, err
	}
	if snapshot == nil {
		return nil, fmt.Errorf("epoch %d: %w", epoch, ErrEpochNotFound)
	}
	if !snapshot.Completed {
		return nil, fmt.Errorf("epoch %d: %w", epoch, ErrEpochNotComplete)
	}
	return snapshot.Seed, nil
}

// ComputeDrop returns a drop's derived randomness for an epoch. The drop
// must have existed by the requested epoch and the epoch must be complete.
func (e *Engine) ComputeDrop(epoch uint64, dropSeed uint64) ([]byte, error) {
	drop, err := e.db.GetDrop(dropSeed, nil)
	if err != nil {
		return nil, err
	}
	if drop == nil {
		return nil, fmt.Errorf("drop %d does not exist", dropSeed)
	}
	if drop.Epoch > epoch {
		return nil, fmt.Errorf(
			"drop %d was created in epoch %d, after epoch %d",
			dropSeed,
			drop.Epoch,
			epoch,
		)
	}
	epochSeed, err := e.ComputeEpoch(epoch)
	if err != nil {
		return nil, err
	}
	return TokenDigest(epochSeed, dropSeed), nil
}

// ComputeDropLastEpoch returns a drop's derived randomness for the epoch
// before the current one, the most recent epoch that can be complete
func (e *Engine) ComputeDropLastEpoch(dropSeed uint64) ([]byte, error) {
	state, err := e.db.GetState(nil)
	if err != nil {
		return nil, err
	}
	if state == nil {
		return nil, errors.New("ledger has not been initialized")
	}
	if state.Epoch < 2 {
		return nil, fmt.Errorf("epoch %d: %w", state.Epoch, ErrEpochNotFound)
	}
	return e.ComputeDrop(state.Epoch-1, dropSeed)
}

// completeEpoch freezes an epoch's randomness once every snapshot oracle
// has revealed. Returns the digest, or nil when reveals are still missing.
func (e *Engine) completeEpoch(
	epoch uint64,
	snapshot []string,
	txn *database.Txn,
) ([]byte, error) {
	reveals, err := e.db.GetRevealsByEpoch(epoch, txn)
	if err != nil {
		return nil, err
	}
	revealed := make(map[string]bool, len(reveals))
	values := make([]string, 0, len(reveals))
	for _, reveal := range reveals {
		revealed[reveal.Oracle] = true
		values = append(values, reveal.Value)
	}
	for _, name := range snapshot {
		if !revealed[name] {
			return nil, nil
		}
	}
	seed := EpochDigest(epoch, values)
	if err := e.db.CompleteOracleEpoch(epoch, seed, txn); err != nil {
		return nil, err
	}
	if err := e.db.SetEpochSeed(epoch, seed, txn); err != nil {
		return nil, err
	}
	return seed, nil
}
