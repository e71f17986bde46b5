// Copyright 2020 ampscore Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package floats

import (
	"github.com/chewxy/math32"
)

// Add two vectors: dst = dst + s
func Add(dst, s []float32) {
	if len(dst) != len(s) {
		panic("floats: slice lengths do not match")
	}
	for i := range dst {
		dst[i] += s[i]
	}
}

// AddConst adds a const to a vector: dst = dst + c
func AddConst(dst []float32, c float32) {
	for i := range dst {
		dst[i] += c
	}
}

// MulConst multiplies a vector with a const: dst = dst * c
func MulConst(dst []float32, c float32) {
	for i := range dst {
		dst[i] *= c
	}
}

// MulConstAdd multiplies a vector and a const, then adds to dst: dst = dst + a * c
func MulConstAdd(a []float32, c float32, dst []float32) {
	if len(a) != len(dst) {
		panic("floats: slice lengths do not match")
	}
	for i := range a {
		dst[i] += a[i] * c
	}
}

// Dot two vectors.
func Dot(a, b []float32) (ret float32) {
	if len(a) != len(b) {
		panic("floats: slice lengths do not match")
	}
	for i := range a {
		ret += a[i] * b[i]
	}
	return
}

// Sum of a vector.
func Sum(a []float32) (ret float32) {
	for i := range a {
		ret += a[i]
	}
	return
}

// Mean of a vector.
func Mean(a []float32) float32 {
	if len(a) == 0 {
		panic("floats: zero length vector")
	}
	return Sum(a) / float32(len(a))
}

// StdDev returns the sample standard deviation of a vector.
func StdDev(a []float32) float32 {
	return math32.Sqrt(Variance(a))
}

// Variance returns the sample variance of a vector.
func Variance(a []float32) float32 {
	if len(a) < 2 {
		return 0
	}
	mean := Mean(a)
	var sqSum float32
	for i := range a {
		diff := a[i] - mean
		sqSum += diff * diff
	}
	return sqSum / float32(len(a)-1)
}
