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

package base

import (
	"testing"

	"github.com/ampscore/ampscore/common/floats"
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/stretchr/testify/assert"
)

const randomEpsilon = 0.1

func TestRandomGenerator_NewNormalVector(t *testing.T) {
	rng := NewRandomGenerator(0)
	vec := rng.NewNormalVector(1000, 1, 2)
	assert.InDelta(t, 1, floats.Mean(vec), randomEpsilon)
	assert.InDelta(t, 2, floats.StdDev(vec), randomEpsilon)
}

func TestRandomGenerator_Sample(t *testing.T) {
	excludeSet := mapset.NewSet(0, 1, 2, 3, 4)
	rng := NewRandomGenerator(0)
	for i := 1; i <= 10; i++ {
		sampled := rng.Sample(0, 10, i, excludeSet)
		for j := range sampled {
			assert.False(t, excludeSet.Contains(sampled[j]))
		}
	}
}

func TestRandomGenerator_Determinism(t *testing.T) {
	a := NewRandomGenerator(42).NewNormalVector(100, 0, 1)
	b := NewRandomGenerator(42).NewNormalVector(100, 0, 1)
	assert.Equal(t, a, b)
}
