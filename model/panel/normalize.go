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

// Normalize maps a raw score onto the calibrated unit range with a piecewise
// linear transform: MinRaw to 0, Cutpoint to 0.5 and MaxRaw to 1, exactly.
// When the cutpoint coincides with an extremum the collapsed side clamps to
// its anchor instead of dividing by zero. Scores beyond the training extrema
// map outside [0,1] and are never clipped, they mark out-of-distribution
// observations.
func (c Calibration) Normalize(raw float32) float32 {
	switch {
	case raw == c.Cutpoint:
		return 0.5
	case raw < c.Cutpoint:
		if c.Cutpoint == c.MinRaw {
			return 0
		}
		return 0.5 * (raw - c.MinRaw) / (c.Cutpoint - c.MinRaw)
	default:
		if c.Cutpoint == c.MaxRaw {
			return 1
		}
		return 0.5*(raw-c.Cutpoint)/(c.MaxRaw-c.Cutpoint) + 0.5
	}
}

// NormalizeAll maps raw scores onto the calibrated unit range.
func (c Calibration) NormalizeAll(raw []float32) []float32 {
	normalized := make([]float32, len(raw))
	for i, score := range raw {
		normalized[i] = c.Normalize(score)
	}
	return normalized
}
