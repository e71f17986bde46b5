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
	"github.com/ampscore/ampscore/base"
	"github.com/chewxy/math32"
)

// Scaler standardizes feature columns to zero mean and unit variance.
// Constant columns keep a unit scale so they map to zero instead of NaN.
type Scaler struct {
	Mean []float32
	Std  []float32
}

// NewScaler computes column statistics over a feature matrix.
func NewScaler(features [][]float32, numFeatures int) *Scaler {
	scaler := &Scaler{
		Mean: make([]float32, numFeatures),
		Std:  make([]float32, numFeatures),
	}
	n := float32(len(features))
	if n == 0 {
		for j := range scaler.Std {
			scaler.Std[j] = 1
		}
		return scaler
	}
	for _, row := range features {
		for j, value := range row {
			scaler.Mean[j] += value
		}
	}
	for j := range scaler.Mean {
		scaler.Mean[j] /= n
	}
	for _, row := range features {
		for j, value := range row {
			diff := value - scaler.Mean[j]
			scaler.Std[j] += diff * diff
		}
	}
	for j := range scaler.Std {
		scaler.Std[j] = math32.Sqrt(scaler.Std[j] / n)
		if scaler.Std[j] == 0 {
			scaler.Std[j] = 1
		}
	}
	return scaler
}

// Transform returns a standardized copy of a feature matrix.
func (scaler *Scaler) Transform(features [][]float32) [][]float32 {
	transformed := base.NewMatrix32(len(features), len(scaler.Mean))
	for i, row := range features {
		scaler.TransformTo(row, transformed[i])
	}
	return transformed
}

// TransformTo standardizes a single feature vector into dst.
func (scaler *Scaler) TransformTo(row, dst []float32) {
	for j, value := range row {
		dst[j] = (value - scaler.Mean[j]) / scaler.Std[j]
	}
}
