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

package ledger

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	memoBypass = "bypass"
	memoUnbind = "unbind"
)

type memoKind int

const (
	memoKindGenerate memoKind = iota
	memoKindUnbind
)

type depositMemo struct {
	kind    memoKind
	count   uint64
	entropy string
}

// parseDepositMemo interprets a deposit memo. "unbind" fulfills a
// pending unbind request; "count,entropy" generates count drops from the
// given entropy. The entropy must be longer than MinimumEntropyLength to
// leave enough input material for seed derivation.
func parseDepositMemo(memo string) (*depositMemo, error) {
	if memo == memoUnbind {
		return &depositMemo{kind: memoKindUnbind}, nil
	}
	count, entropy, found := strings.Cut(memo, ",")
	if !found {
		return nil, fmt.Errorf(
			"%w: expected \"<count>,<entropy>\" or %q",
			ErrInvalidMemo,
			memoUnbind,
		)
	}
	// 31 bits matches MaxGenerateCount
	parsed, err := strconv.ParseUint(count, 10, 31)
	if err != nil {
		return nil, fmt.Errorf("%w: bad count %q", ErrInvalidMemo, count)
	}
	if parsed == 0 {
		return nil, fmt.Errorf("%w: count must be greater than zero", ErrInvalidMemo)
	}
	if len(entropy) <= MinimumEntropyLength {
		return nil, fmt.Errorf(
			"%w: entropy must be longer than %d characters",
			ErrInvalidMemo,
			MinimumEntropyLength,
		)
	}
	return &depositMemo{
		kind:    memoKindGenerate,
		count:   parsed,
		entropy: entropy,
	}, nil
}
