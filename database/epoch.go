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
	"time"

	"github.com/aaroncox/drops/database/models"
	"gorm.io/gorm"
)

// GetEpoch returns a single epoch by its number, or nil if not found.
func (d *Database) GetEpoch(number uint64, txn *Txn) (*models.Epoch, error) {
	if txn == nil {
		txn = d.Transaction(false)
		defer txn.Release()
	}
	var ret models.Epoch
	result := txn.Metadata().Where("number = ?", number).First(&ret)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("GetEpoch: query: %w", result.Error)
	}
	return &ret, nil
}

// GetEpochs returns the full epoch sequence in order
func (d *Database) GetEpochs(txn *Txn) ([]models.Epoch, error) {
	if txn == nil {
		txn = d.Transaction(false)
		defer txn.Release()
	}
	var ret []models.Epoch
	result := txn.Metadata().Order("number").Find(&ret)
	if result.Error != nil {
		return nil, fmt.Errorf("GetEpochs: query: %w", result.Error)
	}
	return ret, nil
}

// AddEpoch appends a new epoch to the sequence
func (d *Database) AddEpoch(
	number uint64,
	start, end time.Time,
	txn *Txn,
) error {
	tmpItem := models.Epoch{
		Number: number,
		Start:  start,
		End:    end,
	}
	if result := txn.Metadata().Create(&tmpItem); result.Error != nil {
		return fmt.Errorf("AddEpoch: %w", result.Error)
	}
	return nil
}

// GetOracleEpoch returns the oracle protocol state for an epoch, or nil if
// not found.
func (d *Database) GetOracleEpoch(
	number uint64,
	txn *Txn,
) (*models.OracleEpoch, error) {
	if txn == nil {
		txn = d.Transaction(false)
		defer txn.Release()
	}
	var ret models.OracleEpoch
	result := txn.Metadata().Where("number = ?", number).First(&ret)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("GetOracleEpoch: query: %w", result.Error)
	}
	return &ret, nil
}

// AddOracleEpoch records the oracle snapshot for a newly created epoch
func (d *Database) AddOracleEpoch(
	number uint64,
	oracles []string,
	txn *Txn,
) error {
	tmpItem := models.OracleEpoch{
		Number:  number,
		Oracles: oracles,
	}
	if result := txn.Metadata().Create(&tmpItem); result.Error != nil {
		return fmt.Errorf("AddOracleEpoch: %w", result.Error)
	}
	return nil
}

// CompleteOracleEpoch freezes an epoch's randomness digest and marks the
// oracle protocol for that epoch as completed
func (d *Database) CompleteOracleEpoch(
	number uint64,
	seed []byte,
	txn *Txn,
) error {
	result := txn.Metadata().Model(&models.OracleEpoch{}).
		Where("number = ?", number).
		Updates(map[string]any{"completed": true, "seed": seed})
	if result.Error != nil {
		return fmt.Errorf("CompleteOracleEpoch: %w", result.Error)
	}
	return nil
}
