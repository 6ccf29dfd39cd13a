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

package database

import (
	"encoding/json"
	"errors"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"
)

// Receipt is an immutable record of a completed ledger operation, stored
// in the blob store keyed by sequence number
type Receipt struct {
	Sequence uint64 `json:"sequence"`
	Kind     string `json:"kind"`
	Account  string `json:"account"`
	Epoch    uint64 `json:"epoch"`
	Count    uint64 `json:"count"`
	Detail   string `json:"detail,omitempty"`
}

func receiptBlobKey(sequence uint64) []byte {
	return []byte(fmt.Sprintf("receipt/%d", sequence))
}

func epochSeedBlobKey(epoch uint64) []byte {
	return []byte(fmt.Sprintf("epochseed/%d", epoch))
}

const receiptSequenceBlobKey = "receipt_sequence"

// AddReceipt appends an operation receipt to the blob store, assigning
// the next sequence number
func (d *Database) AddReceipt(receipt Receipt, txn *Txn) (uint64, error) {
	sequence := uint64(1)
	item, err := txn.Blob().Get([]byte(receiptSequenceBlobKey))
	if err == nil {
		err = item.Value(func(v []byte) error {
			var tmp uint64
			if jsonErr := json.Unmarshal(v, &tmp); jsonErr != nil {
				return jsonErr
			}
			sequence = tmp + 1
			return nil
		})
		if err != nil {
			return 0, fmt.Errorf("AddReceipt: sequence: %w", err)
		}
	} else if !errors.Is(err, badger.ErrKeyNotFound) {
		return 0, fmt.Errorf("AddReceipt: sequence: %w", err)
	}
	receipt.Sequence = sequence
	payload, err := json.Marshal(&receipt)
	if err != nil {
		return 0, fmt.Errorf("AddReceipt: marshal: %w", err)
	}
	if err := txn.Blob().Set(receiptBlobKey(sequence), payload); err != nil {
		return 0, fmt.Errorf("AddReceipt: %w", err)
	}
	seqPayload, err := json.Marshal(sequence)
	if err != nil {
		return 0, fmt.Errorf("AddReceipt: marshal sequence: %w", err)
	}
	err = txn.Blob().Set([]byte(receiptSequenceBlobKey), seqPayload)
	if err != nil {
		return 0, fmt.Errorf("AddReceipt: %w", err)
	}
	return sequence, nil
}

// GetReceipt returns a stored operation receipt, or nil if the sequence
// number has not been assigned
func (d *Database) GetReceipt(sequence uint64, txn *Txn) (*Receipt, error) {
	if txn == nil {
		txn = d.Transaction(false)
		defer txn.Release()
	}
	item, err := txn.Blob().Get(receiptBlobKey(sequence))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("GetReceipt: %w", err)
	}
	var ret Receipt
	err = item.Value(func(v []byte) error {
		return json.Unmarshal(v, &ret)
	})
	if err != nil {
		return nil, fmt.Errorf("GetReceipt: unmarshal: %w", err)
	}
	return &ret, nil
}

// SetEpochSeed stores a completed epoch's randomness digest in the blob
// store. The digest is immutable once written.
func (d *Database) SetEpochSeed(epoch uint64, seed []byte, txn *Txn) error {
	if err := txn.Blob().Set(epochSeedBlobKey(epoch), seed); err != nil {
		return fmt.Errorf("SetEpochSeed: %w", err)
	}
	return nil
}

// GetEpochSeed returns a completed epoch's randomness digest, or nil if
// the epoch has not completed
func (d *Database) GetEpochSeed(epoch uint64, txn *Txn) ([]byte, error) {
	if txn == nil {
		txn = d.Transaction(false)
		defer txn.Release()
	}
	item, err := txn.Blob().Get(epochSeedBlobKey(epoch))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("GetEpochSeed: %w", err)
	}
	ret, err := item.ValueCopy(nil)
	if err != nil {
		return nil, fmt.Errorf("GetEpochSeed: %w", err)
	}
	return ret, nil
}
