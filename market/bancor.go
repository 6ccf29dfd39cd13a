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

// BancorInput returns the amount of the input reserve that must be paid in
// to take out of the output reserve. Floating point is used only
// transiently; the result is truncated to an integer and clamped to zero.
func BancorInput(outReserve, inReserve, out int64) int64 {
	ob := float64(outReserve)
	ib := float64(inReserve)

	inp := int64((ib * float64(out)) / (ob - float64(out)))
	if inp < 0 {
		inp = 0
	}
	return inp
}

// BancorOutput returns the amount of the output reserve released by paying
// the given amount into the input reserve.
func BancorOutput(inReserve, outReserve, inp int64) int64 {
	ib := float64(inReserve)
	ob := float64(outReserve)
	in := float64(inp)

	out := int64((in * ob) / (ib + in))
	if out < 0 {
		out = 0
	}
	return out
}
