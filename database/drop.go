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

// seedKey converts a seed to its stored two's-complement form. The
// sqlite driver rejects uint64 bind values with the high bit set.
func seedKey(seed uint64) int64 {
	return int64(seed) // #nosec G115
}

// GetDrop returns a drop by seed, or nil if it does not exist
func (d *Database) GetDrop(seed uint64, txn *Txn) (*models.Drop, error) {
	if txn == nil {
		txn = d.Transaction(false)
		defer txn.Release()
	}
	var ret models.Drop
	result := txn.Metadata().Where("seed = ?", seedKey(seed)).First(&ret)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("GetDrop: query: %w", result.Error)
	}
	return &ret, nil
}

// GetDropsByOwner returns all drops owned by an account, ordered by seed
func (d *Database) GetDropsByOwner(
	owner string,
	txn *Txn,
) ([]models.Drop, error) {
	if txn == nil {
		txn = d.Transaction(false)
		defer txn.Release()
	}
	var ret []models.Drop
	result := txn.Metadata().
		Where("owner = ?", owner).
		Order("seed").
		Find(&ret)
	if result.Error != nil {
		return nil, fmt.Errorf("GetDropsByOwner: query: %w", result.Error)
	}
	return ret, nil
}

// AddDrop inserts a drop row. A seed collision surfaces as a unique
// constraint error and aborts the enclosing transaction.
func (d *Database) AddDrop(
	seed uint64,
	owner string,
	epoch uint64,
	bound bool,
	created time.Time,
	txn *Txn,
) error {
	tmpItem := models.Drop{
		Seed:    seedKey(seed),
		Owner:   owner,
		Epoch:   epoch,
		Bound:   bound,
		Created: created,
	}
	if result := txn.Metadata().Create(&tmpItem); result.Error != nil {
		return fmt.Errorf("AddDrop: %w", result.Error)
	}
	return nil
}

// UpdateDropOwner reassigns a drop to a new owner
func (d *Database) UpdateDropOwner(
	seed uint64,
	owner string,
	txn *Txn,
) error {
	result := txn.Metadata().
		Model(&models.Drop{}).
		Where("seed = ?", seedKey(seed)).
		Update("owner", owner)
	if result.Error != nil {
		return fmt.Errorf("UpdateDropOwner: %w", result.Error)
	}
	return nil
}

// UpdateDropBound flips a drop between bound and unbound storage
func (d *Database) UpdateDropBound(
	seed uint64,
	bound bool,
	txn *Txn,
) error {
	result := txn.Metadata().
		Model(&models.Drop{}).
		Where("seed = ?", seedKey(seed)).
		Update("bound", bound)
	if result.Error != nil {
		return fmt.Errorf("UpdateDropBound: %w", result.Error)
	}
	return nil
}

// DeleteDrop removes a drop row
func (d *Database) DeleteDrop(seed uint64, txn *Txn) error {
	result := txn.Metadata().
		Where("seed = ?", seedKey(seed)).
		Delete(&models.Drop{})
	if result.Error != nil {
		return fmt.Errorf("DeleteDrop: %w", result.Error)
	}
	return nil
}

// CountDrops returns the total number of drop rows
func (d *Database) CountDrops(txn *Txn) (uint64, error) {
	if txn == nil {
		txn = d.Transaction(false)
		defer txn.Release()
	}
	var count int64
	result := txn.Metadata().Model(&models.Drop{}).Count(&count)
	if result.Error != nil {
		return 0, fmt.Errorf("CountDrops: query: %w", result.Error)
	}
	return uint64(count), nil // #nosec G115
}

// GetUnbindRequest returns an owner's pending unbind request, or nil if
// none exists
func (d *Database) GetUnbindRequest(
	owner string,
	txn *Txn,
) (*models.UnbindRequest, error) {
	if txn == nil {
		txn = d.Transaction(false)
		defer txn.Release()
	}
	var ret models.UnbindRequest
	result := txn.Metadata().Where("owner = ?", owner).First(&ret)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("GetUnbindRequest: query: %w", result.Error)
	}
	return &ret, nil
}

// AddUnbindRequest records a pending unbind request for an owner
func (d *Database) AddUnbindRequest(
	owner string,
	dropIds []uint64,
	txn *Txn,
) error {
	tmpItem := models.UnbindRequest{
		Owner:   owner,
		DropIds: dropIds,
	}
	if result := txn.Metadata().Create(&tmpItem); result.Error != nil {
		return fmt.Errorf("AddUnbindRequest: %w", result.Error)
	}
	return nil
}

// DeleteUnbindRequest removes an owner's pending unbind request
func (d *Database) DeleteUnbindRequest(owner string, txn *Txn) error {
	result := txn.Metadata().
		Where("owner = ?", owner).
		Delete(&models.UnbindRequest{})
	if result.Error != nil {
		return fmt.Errorf("DeleteUnbindRequest: %w", result.Error)
	}
	return nil
}
