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

package selector

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScaler(t *testing.T) {
	features := [][]float32{
		{1, 5, 0},
		{3, 5, 4},
	}
	scaler := NewScaler(features, 3)
	assert.Equal(t, []float32{2, 5, 2}, scaler.Mean)
	// constant columns keep unit scale
	assert.Equal(t, []float32{1, 1, 2}, scaler.Std)

	transformed := scaler.Transform(features)
	assert.Equal(t, [][]float32{{-1, 0, -1}, {1, 0, 1}}, transformed)
	// source matrix is left untouched
	assert.Equal(t, [][]float32{{1, 5, 0}, {3, 5, 4}}, features)
}

func TestScalerEmpty(t *testing.T) {
	scaler := NewScaler(nil, 2)
	assert.Equal(t, []float32{0, 0}, scaler.Mean)
	assert.Equal(t, []float32{1, 1}, scaler.Std)
}
