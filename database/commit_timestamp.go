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
	"errors"
	"fmt"
	"math/big"

	badger "github.com/dgraph-io/badger/v4"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const commitTimestampBlobKey = "metadata_commit_timestamp"

// CommitTimestamp tracks the last commit applied to the metadata store so
// that it can be compared against the blob store on startup.
type CommitTimestamp struct {
	ID        uint16 `gorm:"primarykey"`
	Timestamp int64
}

func (CommitTimestamp) TableName() string {
	return "commit_timestamp"
}

type CommitTimestampError struct {
	MetadataTimestamp int64
	BlobTimestamp     int64
}

func (e CommitTimestampError) Error() string {
	return fmt.Sprintf(
		"commit timestamp mismatch: %d (metadata) != %d (blob)",
		e.MetadataTimestamp,
		e.BlobTimestamp,
	)
}

func (d *Database) checkCommitTimestamp() error {
	// Get value from metadata
	var ct CommitTimestamp
	if result := d.metadata.First(&ct); result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil
		}
		// The table won't exist on first startup
		return nil
	}
	// No timestamp in the database
	if ct.Timestamp <= 0 {
		return nil
	}
	// Get value from blob
	var blobTimestamp int64
	err := d.blob.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(commitTimestampBlobKey))
		if err != nil {
			return err
		}
		val, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		blobTimestamp = new(big.Int).SetBytes(val).Int64()
		return nil
	})
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		return fmt.Errorf("failed to get blob timestamp: %w", err)
	}
	// Compare values
	if blobTimestamp != ct.Timestamp {
		return CommitTimestampError{
			MetadataTimestamp: ct.Timestamp,
			BlobTimestamp:     blobTimestamp,
		}
	}
	return nil
}

func (d *Database) updateCommitTimestamp(txn *Txn, timestamp int64) error {
	// Update metadata
	tmpItem := CommitTimestamp{ID: 1, Timestamp: timestamp}
	if result := txn.Metadata().Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"timestamp"}),
	}).Create(&tmpItem); result.Error != nil {
		return result.Error
	}
	// Update blob
	tmpTimestamp := new(big.Int).SetInt64(timestamp)
	if err := txn.Blob().Set(
		[]byte(commitTimestampBlobKey),
		tmpTimestamp.Bytes(),
	); err != nil {
		return err
	}
	return nil
}
