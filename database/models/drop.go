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

// Drop is a single collectible token. The Seed primary key is derived from
// the caller-supplied entropy at mint time; a duplicate key aborts the
// whole mint batch. Seeds are uint64 identifiers stored two's-complement,
// since the sqlite driver rejects uint64 bind values with the high bit
// set. Bound drops cannot change owner and their storage is paid for by
// the owner rather than the ledger.
type Drop struct {
	Seed    int64  `gorm:"primarykey;autoIncrement:false"`
	Owner   string `gorm:"index;size:64"`
	Epoch   uint64 `gorm:"index"`
	Bound   bool
	Created time.Time
}

func (Drop) TableName() string {
	return "drop"
}

// UnbindRequest is the pending half of the two-phase unbind protocol. The
// request is recorded first; a follow-up currency deposit with the
// "unbind" memo pays for the storage re-purchase and consumes the request.
type UnbindRequest struct {
	ID      uint     `gorm:"primarykey"`
	Owner   string   `gorm:"uniqueIndex;size:64"`
	DropIds []uint64 `gorm:"serializer:json"`
}

func (UnbindRequest) TableName() string {
	return "unbind_request"
}
