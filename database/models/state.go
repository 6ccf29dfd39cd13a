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

// State is the ledger's singleton state row. Exactly one row exists (ID 1)
// once the ledger has been initialized.
type State struct {
	ID      uint16 `gorm:"primarykey"`
	Epoch   uint64
	Enabled bool
}

func (State) TableName() string {
	return "state"
}
