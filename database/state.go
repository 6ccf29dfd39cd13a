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

// GetState returns the singleton ledger state, or nil if the ledger has
// not been initialized.
func (d *Database) GetState(txn *Txn) (*models.State, error) {
	if txn == nil {
		txn = d.Transaction(false)
		defer txn.Release()
	}
	var ret models.State
	result := txn.Metadata().Where("id = ?", 1).First(&ret)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("GetState: query: %w", result.Error)
	}
	return &ret, nil
}

// SetState saves the singleton ledger state
func (d *Database) SetState(epoch uint64, enabled bool, txn *Txn) error {
	tmpItem := models.State{
		ID:      1,
		Epoch:   epoch,
		Enabled: enabled,
	}
	if result := txn.Metadata().Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"epoch", "enabled"}),
	}).Create(&tmpItem); result.Error != nil {
		return fmt.Errorf("SetState: %w", result.Error)
	}
	return nil
}
