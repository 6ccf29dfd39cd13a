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

// Oracle is an entry in the live oracle allow-list. The list is copied
// into each new epoch's OracleEpoch snapshot on advance.
type Oracle struct {
	ID   uint   `gorm:"primarykey"`
	Name string `gorm:"uniqueIndex;size:64"`
}

func (Oracle) TableName() string {
	return "oracle"
}

// Commitment is an oracle's binding hash for one epoch. At most one row
// exists per (oracle, epoch) pair and rows are never mutated.
type Commitment struct {
	ID     uint   `gorm:"primarykey"`
	Oracle string `gorm:"uniqueIndex:idx_commit_oracle_epoch;size:64"`
	Epoch  uint64 `gorm:"uniqueIndex:idx_commit_oracle_epoch;index"`
	Hash   []byte `gorm:"size:32"`
}

func (Commitment) TableName() string {
	return "commitment"
}

// Reveal is the pre-image published by an oracle after the epoch's commit
// window has closed. Its hash must match the oracle's Commitment exactly.
type Reveal struct {
	ID     uint   `gorm:"primarykey"`
	Oracle string `gorm:"uniqueIndex:idx_reveal_oracle_epoch;size:64"`
	Epoch  uint64 `gorm:"uniqueIndex:idx_reveal_oracle_epoch;index"`
	Value  string
}

func (Reveal) TableName() string {
	return "reveal"
}

// Subscriber is an account registered to be notified when the epoch
// advances.
type Subscriber struct {
	ID   uint   `gorm:"primarykey"`
	Name string `gorm:"uniqueIndex;size:64"`
}

func (Subscriber) TableName() string {
	return "subscriber"
}
