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

package market

import (
	"fmt"
)

// AssetPrecision is the number of decimal places carried by every Asset
// amount. All amounts are stored as integers scaled by 10^AssetPrecision.
const AssetPrecision = 4

// AssetSymbol is the symbol of the system currency used to price storage.
const AssetSymbol = "EOS"

// Asset is a fixed-point amount of the system currency. The integer amount
// is scaled by 10^4, so Asset{Amount: 10000} is "1.0000 EOS". No float is
// ever stored in an Asset.
type Asset struct {
	Amount int64
}

// NewAsset returns an Asset from a raw scaled integer amount.
func NewAsset(amount int64) Asset {
	return Asset{Amount: amount}
}

// Add returns the sum of two assets.
func (a Asset) Add(other Asset) Asset {
	return Asset{Amount: a.Amount + other.Amount}
}

// Sub returns the difference of two assets.
func (a Asset) Sub(other Asset) Asset {
	return Asset{Amount: a.Amount - other.Amount}
}

// IsPositive returns true when the amount is greater than zero.
func (a Asset) IsPositive() bool {
	return a.Amount > 0
}

func (a Asset) String() string {
	amount := a.Amount
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	return fmt.Sprintf(
		"%s%d.%04d %s",
		sign,
		amount/10000,
		amount%10000,
		AssetSymbol,
	)
}
