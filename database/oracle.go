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
)

// GetOracle returns an allow-list entry by name, or nil if not registered
func (d *Database) GetOracle(name string, txn *Txn) (*models.Oracle, error) {
	if txn == nil {
		txn = d.Transaction(false)
		defer txn.Release()
	}
	var ret models.Oracle
	result := txn.Metadata().Where("name = ?", name).First(&ret)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("GetOracle: query: %w", result.Error)
	}
	return &ret, nil
}

// GetOracles returns the live oracle allow-list in name order
func (d *Database) GetOracles(txn *Txn) ([]string, error) {
	if txn == nil {
		txn = d.Transaction(false)
		defer txn.Release()
	}
	var rows []models.Oracle
	result := txn.Metadata().Order("name").Find(&rows)
	if result.Error != nil {
		return nil, fmt.Errorf("GetOracles: query: %w", result.Error)
	}
	ret := make([]string, 0, len(rows))
	for _, row := range rows {
		ret = append(ret, row.Name)
	}
	return ret, nil
}

// AddOracle registers an oracle in the live allow-list
func (d *Database) AddOracle(name string, txn *Txn) error {
	tmpItem := models.Oracle{Name: name}
	if result := txn.Metadata().Create(&tmpItem); result.Error != nil {
		return fmt.Errorf("AddOracle: %w", result.Error)
	}
	return nil
}

// RemoveOracle removes an oracle from the live allow-list
func (d *Database) RemoveOracle(name string, txn *Txn) error {
	result := txn.Metadata().
		Where("name = ?", name).
		Delete(&models.Oracle{})
	if result.Error != nil {
		return fmt.Errorf("RemoveOracle: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("RemoveOracle: oracle %s not found", name)
	}
	return nil
}

// GetCommitment returns an oracle's commitment for an epoch, or nil if
// none exists
func (d *Database) GetCommitment(
	oracle string,
	epoch uint64,
	txn *Txn,
) (*models.Commitment, error) {
	if txn == nil {
		txn = d.Transaction(false)
		defer txn.Release()
	}
	var ret models.Commitment
	result := txn.Metadata().
		Where("oracle = ? AND epoch = ?", oracle, epoch).
		First(&ret)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("GetCommitment: query: %w", result.Error)
	}
	return &ret, nil
}

// AddCommitment records an oracle's commitment for an epoch
func (d *Database) AddCommitment(
	oracle string,
	epoch uint64,
	hash []byte,
	txn *Txn,
) error {
	tmpItem := models.Commitment{
		Oracle: oracle,
		Epoch:  epoch,
		Hash:   hash,
	}
	if result := txn.Metadata().Create(&tmpItem); result.Error != nil {
		return fmt.Errorf("AddCommitment: %w", result.Error)
	}
	return nil
}

// GetReveal returns an oracle's reveal for an epoch, or nil if none exists
func (d *Database) GetReveal(
	oracle string,
	epoch uint64,
	txn *Txn,
) (*models.Reveal, error) {
	if txn == nil {
		txn = d.Transaction(false)
		defer txn.Release()
	}
	var ret models.Reveal
	result := txn.Metadata().
		Where("oracle = ? AND epoch = ?", oracle, epoch).
		First(&ret)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("GetReveal: query: %w", result.Error)
	}
	return &ret, nil
}

// GetRevealsByEpoch returns all reveal pre-images recorded for an epoch
func (d *Database) GetRevealsByEpoch(
	epoch uint64,
	txn *Txn,
) ([]models.Reveal, error) {
	if txn == nil {
		txn = d.Transaction(false)
		defer txn.Release()
	}
	var ret []models.Reveal
	result := txn.Metadata().Where("epoch = ?", epoch).Find(&ret)
	if result.Error != nil {
		return nil, fmt.Errorf("GetRevealsByEpoch: query: %w", result.Error)
	}
	return ret, nil
}

// AddReveal records an oracle's reveal pre-image for an epoch
func (d *Database) AddReveal(
	oracle string,
	epoch uint64,
	value string,
	txn *Txn,
) error {
	tmpItem := models.Reveal{
		Oracle: oracle,
		Epoch:  epoch,
		Value:  value,
	}
	if result := txn.Metadata().Create(&tmpItem); result.Error != nil {
		return fmt.Errorf("AddReveal: %w", result.Error)
	}
	return nil
}

// GetSubscribers returns all accounts subscribed to advance notifications
func (d *Database) GetSubscribers(txn *Txn) ([]string, error) {
	if txn == nil {
		txn = d.Transaction(false)
		defer txn.Release()
	}
	var rows []models.Subscriber
	result := txn.Metadata().Order("name").Find(&rows)
	if result.Error != nil {
		return nil, fmt.Errorf("GetSubscribers: query: %w", result.Error)
	}
	ret := make([]string, 0, len(rows))
	for _, row := range rows {
		ret = append(ret, row.Name)
	}
	return ret, nil
}

// AddSubscriber registers an account for advance notifications
func (d *Database) AddSubscriber(name string, txn *Txn) error {
	tmpItem := models.Subscriber{Name: name}
	if result := txn.Metadata().Create(&tmpItem); result.Error != nil {
		return fmt.Errorf("AddSubscriber: %w", result.Error)
	}
	return nil
}

// RemoveSubscriber removes an account from advance notifications
func (d *Database) RemoveSubscriber(name string, txn *Txn) error {
	result := txn.Metadata().
		Where("name = ?", name).
		Delete(&models.Subscriber{})
	if result.Error != nil {
		return fmt.Errorf("RemoveSubscriber: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("RemoveSubscriber: subscriber %s not found", name)
	}
	return nil
}
