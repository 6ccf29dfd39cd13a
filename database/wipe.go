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
	"fmt"

	"github.com/aaroncox/drops/database/models"
)

// Wipe removes all ledger and oracle rows. Development tooling only.
func (d *Database) Wipe(txn *Txn) error {
	for _, model := range []any{
		&models.Account{},
		&models.Commitment{},
		&models.Drop{},
		&models.Epoch{},
		&models.EpochStat{},
		&models.Oracle{},
		&models.OracleEpoch{},
		&models.Reveal{},
		&models.State{},
		&models.Subscriber{},
		&models.UnbindRequest{},
	} {
		result := txn.Metadata().Where("1 = 1").Delete(model)
		if result.Error != nil {
			return fmt.Errorf("Wipe: %w", result.Error)
		}
	}
	return nil
}
