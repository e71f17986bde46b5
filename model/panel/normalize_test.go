// Copyright 2025 ampscore Project Authors
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

package panel

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	c := Calibration{MinRaw: 0, MaxRaw: 10, Cutpoint: 4}
	// anchors map exactly
	assert.Equal(t, float32(0), c.Normalize(0))
	assert.Equal(t, float32(0.5), c.Normalize(4))
	assert.Equal(t, float32(1), c.Normalize(10))
	// linear between anchors
	assert.Equal(t, float32(0.25), c.Normalize(2))
	assert.Equal(t, float32(0.75), c.Normalize(7))
	// scores beyond the training extrema are not clipped
	assert.Equal(t, float32(-0.25), c.Normalize(-2))
	assert.Equal(t, float32(1.25), c.Normalize(13))
}

func TestNormalizeMonotonic(t *testing.T) {
	c := Calibration{MinRaw: -3, MaxRaw: 5, Cutpoint: 0.7}
	previous := math32.Inf(-1)
	for raw := float32(-6); raw <= 8; raw += 0.25 {
		normalized := c.Normalize(raw)
		assert.GreaterOrEqual(t, normalized, previous)
		assert.False(t, math32.IsNaN(normalized))
		previous = normalized
	}
}

func TestNormalizeDegenerate(t *testing.T) {
	// cutpoint at the minimum: the collapsed lower side clamps to 0
	low := Calibration{MinRaw: 2, MaxRaw: 8, Cutpoint: 2}
	assert.Equal(t, float32(0), low.Normalize(1))
	assert.Equal(t, float32(0.5), low.Normalize(2))
	assert.Equal(t, float32(0.75), low.Normalize(5))
	assert.Equal(t, float32(1), low.Normalize(8))
	// cutpoint at the maximum: the collapsed upper side clamps to 1
	high := Calibration{MinRaw: 2, MaxRaw: 8, Cutpoint: 8}
	assert.Equal(t, float32(0), high.Normalize(2))
	assert.Equal(t, float32(0.25), high.Normalize(5))
	assert.Equal(t, float32(0.5), high.Normalize(8))
	assert.Equal(t, float32(1), high.Normalize(9))
}

func TestNormalizeAll(t *testing.T) {
	c := Calibration{MinRaw: 0, MaxRaw: 10, Cutpoint: 4}
	assert.Equal(t, []float32{0, 0.25, 0.5, 0.75, 1},
		c.NormalizeAll([]float32{0, 2, 4, 7, 10}))
	assert.Empty(t, c.NormalizeAll(nil))
}
