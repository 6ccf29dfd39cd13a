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

package models

import (
	"time"
)

// Epoch is one fixed-duration window in the append-only epoch sequence.
// Boundaries are immutable once the row is created: each epoch starts
// exactly where the previous one ended.
type Epoch struct {
	ID     uint   `gorm:"primarykey"`
	Number uint64 `gorm:"uniqueIndex"`
	Start  time.Time
	End    time.Time
}

func (Epoch) TableName() string {
	return "epoch"
}

// OracleEpoch carries the per-epoch oracle protocol state: the snapshot of
// registered oracles captured when the epoch was created, whether every
// oracle in the snapshot has revealed, and the frozen randomness digest
// once completed. The snapshot pins the oracle set against membership
// changes made mid-epoch.
type OracleEpoch struct {
	ID        uint     `gorm:"primarykey"`
	Number    uint64   `gorm:"uniqueIndex"`
	Oracles   []string `gorm:"serializer:json"`
	Completed bool
	Seed      []byte `gorm:"size:32"`
}

func (OracleEpoch) TableName() string {
	return "oracle_epoch"
}
