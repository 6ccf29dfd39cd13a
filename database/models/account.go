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

// Account tracks the drop count for every account currently holding
// drops. Rows are created on first mint or receipt and removed when the
// count returns to zero.
type Account struct {
	ID    uint   `gorm:"primarykey"`
	Name  string `gorm:"uniqueIndex;size:64"`
	Drops uint64
}

func (Account) TableName() string {
	return "account"
}

// EpochStat tracks the drop count for one account within one epoch.
// Invariant: the sum of an account's EpochStat rows equals its Account
// total.
type EpochStat struct {
	ID      uint   `gorm:"primarykey"`
	Account string `gorm:"uniqueIndex:idx_stat_account_epoch;size:64"`
	Epoch   uint64 `gorm:"uniqueIndex:idx_stat_account_epoch;index"`
	Drops   uint64
}

func (EpochStat) TableName() string {
	return "stat"
}
