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

	"github.com/aaroncox/drops/database/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GetAccount returns an account's balance row, or nil if it holds no drops
func (d *Database) GetAccount(
	name string,
	txn *Txn,
) (*models.Account, error) {
	if txn == nil {
		txn = d.Transaction(false)
		defer txn.Release()
	}
	var ret models.Account
	result := txn.Metadata().Where("name = ?", name).First(&ret)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("GetAccount: query: %w", result.Error)
	}
	return &ret, nil
}

// GetAccounts returns all account balance rows in name order
func (d *Database) GetAccounts(txn *Txn) ([]models.Account, error) {
	if txn == nil {
		txn = d.Transaction(false)
		defer txn.Release()
	}
	var ret []models.Account
	result := txn.Metadata().Order("name").Find(&ret)
	if result.Error != nil {
		return nil, fmt.Errorf("GetAccounts: query: %w", result.Error)
	}
	return ret, nil
}

// SetAccount upserts an account's drop total
func (d *Database) SetAccount(name string, drops uint64, txn *Txn) error {
	tmpItem := models.Account{
		Name:  name,
		Drops: drops,
	}
	result := txn.Metadata().Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"drops"}),
	}).Create(&tmpItem)
	if result.Error != nil {
		return fmt.Errorf("SetAccount: %w", result.Error)
	}
	return nil
}

// DeleteAccount removes an account's balance row
func (d *Database) DeleteAccount(name string, txn *Txn) error {
	result := txn.Metadata().
		Where("name = ?", name).
		Delete(&models.Account{})
	if result.Error != nil {
		return fmt.Errorf("DeleteAccount: %w", result.Error)
	}
	return nil
}

// GetStat returns an account's per-epoch drop count, or nil if none exists
func (d *Database) GetStat(
	account string,
	epoch uint64,
	txn *Txn,
) (*models.EpochStat, error) {
	if txn == nil {
		txn = d.Transaction(false)
		defer txn.Release()
	}
	var ret models.EpochStat
	result := txn.Metadata().
		Where("account = ? AND epoch = ?", account, epoch).
		First(&ret)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("GetStat: query: %w", result.Error)
	}
	return &ret, nil
}

// GetStatsByAccount returns an account's per-epoch counts in epoch order
func (d *Database) GetStatsByAccount(
	account string,
	txn *Txn,
) ([]models.EpochStat, error) {
	if txn == nil {
		txn = d.Transaction(false)
		defer txn.Release()
	}
	var ret []models.EpochStat
	result := txn.Metadata().
		Where("account = ?", account).
		Order("epoch").
		Find(&ret)
	if result.Error != nil {
		return nil, fmt.Errorf("GetStatsByAccount: query: %w", result.Error)
	}
	return ret, nil
}

// SetStat upserts an account's drop count for an epoch
func (d *Database) SetStat(
	account string,
	epoch uint64,
	drops uint64,
	txn *Txn,
) error {
	tmpItem := models.EpochStat{
		Account: account,
		Epoch:   epoch,
		Drops:   drops,
	}
	result := txn.Metadata().Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "account"}, {Name: "epoch"}},
		DoUpdates: clause.AssignmentColumns([]string{"drops"}),
	}).Create(&tmpItem)
	if result.Error != nil {
		return fmt.Errorf("SetStat: %w", result.Error)
	}
	return nil
}

// DeleteStat removes an account's per-epoch count row
func (d *Database) DeleteStat(
	account string,
	epoch uint64,
	txn *Txn,
) error {
	result := txn.Metadata().
		Where("account = ? AND epoch = ?", account, epoch).
		Delete(&models.EpochStat{})
	if result.Error != nil {
		return fmt.Errorf("DeleteStat: %w", result.Error)
	}
	return nil
}
