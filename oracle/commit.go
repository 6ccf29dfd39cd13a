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
	"fmt"
	"slices"

	"github.com/aaroncox/drops/database"
	"github.com/aaroncox/drops/database/models"
	"github.com/aaroncox/drops/event"
)

// Commit records an oracle's hash for an epoch. The epoch must be open,
// the oracle must be in the epoch's snapshot, and the oracle must not
// have committed already.
func (e *Engine) Commit(oracleName string, epoch uint64, hash []byte) error {
	if err := e.authorizer.RequireAuth(oracleName); err != nil {
		return err
	}
	if len(hash) != sha256.Size {
		return fmt.Errorf("commit hash must be %d bytes", sha256.Size)
	}
	txn := e.db.Transaction(true)
	err := txn.Do(func(txn *database.Txn) error {
		snapshot, epochRow, err := e.epochRows(epoch, txn)
		if err != nil {
			return err
		}
		now := e.now()
		if !now.After(epochRow.Start) {
			return fmt.Errorf("epoch %d: %w", epoch, ErrEpochNotStarted)
		}
		if !now.Before(epochRow.End) {
			return fmt.Errorf("epoch %d: %w", epoch, ErrEpochClosed)
		}
		if !slices.Contains(snapshot.Oracles, oracleName) {
			return fmt.Errorf("%s: %w", oracleName, ErrNotInSnapshot)
		}
		existing, err := e.db.GetCommitment(oracleName, epoch, txn)
		if err != nil {
			return err
		}
		if existing != nil {
			return fmt.Errorf("%s: %w", oracleName, ErrDuplicateCommit)
		}
		return e.db.AddCommitment(oracleName, epoch, hash, txn)
	})
	if err != nil {
		return err
	}
	e.logger.Info(
		"oracle committed",
		"component", "oracle",
		"oracle", oracleName,
		"epoch", epoch,
	)
	return nil
}

// Reveal records an oracle's pre-image for a concluded epoch. The value
// must hash to the oracle's prior commitment. The reveal that satisfies
// the last outstanding snapshot oracle freezes the epoch's randomness.
func (e *Engine) Reveal(oracleName string, epoch uint64, value string) error {
	if err := e.authorizer.RequireAuth(oracleName); err != nil {
		return err
	}
	var seed []byte
	txn := e.db.Transaction(true)
	err := txn.Do(func(txn *database.Txn) error {
		snapshot, epochRow, err := e.epochRows(epoch, txn)
		if err != nil {
			return err
		}
		if !e.now().After(epochRow.End) {
			return fmt.Errorf("epoch %d: %w", epoch, ErrEpochStillOpen)
		}
		commitment, err := e.db.GetCommitment(oracleName, epoch, txn)
		if err != nil {
			return err
		}
		if commitment == nil {
			return fmt.Errorf("%s: %w", oracleName, ErrMissingCommitment)
		}
		existing, err := e.db.GetReveal(oracleName, epoch, txn)
		if err != nil {
			return err
		}
		if existing != nil {
			return fmt.Errorf("%s: %w", oracleName, ErrDuplicateReveal)
		}
		checksum := sha256.Sum256([]byte(value))
		if !slices.Equal(checksum[:], commitment.Hash) {
			return fmt.Errorf(
				"reveal hash %s does not match commitment %s",
				hex.EncodeToString(checksum[:]),
				hex.EncodeToString(commitment.Hash),
			)
		}
		if err := e.db.AddReveal(oracleName, epoch, value, txn); err != nil {
			return err
		}
		seed, err = e.completeEpoch(epoch, snapshot.Oracles, txn)
		return err
	})
	if err != nil {
		return err
	}
	e.logger.Info(
		"oracle revealed",
		"component", "oracle",
		"oracle", oracleName,
		"epoch", epoch,
	)
	if seed != nil {
		e.publishComplete(epoch, seed)
	}
	return nil
}

// Finalize freezes an epoch's randomness once all snapshot oracles have
// revealed. Reveal performs the same check, so this is only needed when
// an epoch's last reveal predates the completion logic. Idempotent.
func (e *Engine) Finalize(epoch uint64) error {
	var seed []byte
	txn := e.db.Transaction(true)
	err := txn.Do(func(txn *database.Txn) error {
		snapshot, epochRow, err := e.epochRows(epoch, txn)
		if err != nil {
			return err
		}
		if snapshot.Completed {
			return nil
		}
		if !e.now().After(epochRow.End) {
			return fmt.Errorf("epoch %d: %w", epoch, ErrEpochStillOpen)
		}
		seed, err = e.completeEpoch(epoch, snapshot.Oracles, txn)
		if err != nil {
			return err
		}
		if seed == nil {
			return fmt.Errorf("epoch %d: %w", epoch, ErrEpochNotComplete)
		}
		return nil
	})
	if err != nil {
		return err
	}
	if seed != nil {
		e.logger.Info(
			"epoch finalized",
			"component", "oracle",
			"epoch", epoch,
		)
		e.publishComplete(epoch, seed)
	}
	return nil
}

func (e *Engine) epochRows(
	epoch uint64,
	txn *database.Txn,
) (*models.OracleEpoch, *models.Epoch, error) {
	snapshot, err := e.db.GetOracleEpoch(epoch, txn)
	if err != nil {
		return nil, nil, err
	}
	if snapshot == nil {
		return nil, nil, fmt.Errorf("epoch %d: %w", epoch, ErrEpochNotFound)
	}
	epochRow, err := e.db.GetEpoch(epoch, txn)
	if err != nil {
		return nil, nil, err
	}
	if epochRow == nil {
		return nil, nil, fmt.Errorf("epoch %d: %w", epoch, ErrEpochNotFound)
	}
	return snapshot, epochRow, nil
}

func (e *Engine) publishComplete(epoch uint64, seed []byte) {
	if e.eventBus == nil {
		return
	}
	e.eventBus.Publish(
		event.EpochCompleteEventType,
		event.NewEvent(
			event.EpochCompleteEventType,
			event.EpochCompleteEvent{
				Number: epoch,
				Seed:   seed,
			},
		),
	)
}
