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

package event

// GenerateEventType is the event type for drop generation
const GenerateEventType = EventType("ledger.generate")

// GenerateEvent is emitted after a deposit produces new drops
type GenerateEvent struct {
	Owner string
	Epoch uint64
	Count uint64
	Bound bool
}

// TransferEventType is the event type for drop ownership changes
const TransferEventType = EventType("ledger.transfer")

// TransferEvent is emitted after drops change owner
type TransferEvent struct {
	From    string
	To      string
	DropIds []uint64
}

// DestroyEventType is the event type for drop destruction
const DestroyEventType = EventType("ledger.destroy")

// DestroyEvent is emitted after drops are destroyed and their storage
// reclaimed
type DestroyEvent struct {
	Owner   string
	DropIds []uint64
}
