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

import "time"

// EpochAdvanceEventType is the event type for epoch transitions
const EpochAdvanceEventType = EventType("epoch.advance")

// EpochAdvanceEvent is emitted when a new epoch opens. Subscribed accounts
// receive this as their advance notification.
type EpochAdvanceEvent struct {
	// Number is the newly opened epoch
	Number uint64
	// Start is the opening boundary of the new epoch
	Start time.Time
	// End is the closing boundary of the new epoch
	End time.Time
	// Oracles is the allow-list snapshot captured for the new epoch
	Oracles []string
}

// EpochCompleteEventType is the event type for epoch randomness completion
const EpochCompleteEventType = EventType("epoch.complete")

// EpochCompleteEvent is emitted when the final oracle reveal freezes an
// epoch's randomness digest
type EpochCompleteEvent struct {
	// Number is the completed epoch
	Number uint64
	// Seed is the frozen randomness digest
	Seed []byte
}
