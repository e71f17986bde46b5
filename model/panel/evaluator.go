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

import "go.uber.org/zap"

// Metrics summarizes classification quality of normalized scores thresholded
// at 0.5 against ground truth labels.
type Metrics struct {
	Accuracy    float32
	Sensitivity float32
	Specificity float32
}

func (metrics Metrics) ZapFields() []zap.Field {
	return []zap.Field{
		zap.Float32("Accuracy", metrics.Accuracy),
		zap.Float32("Sensitivity", metrics.Sensitivity),
		zap.Float32("Specificity", metrics.Specificity),
	}
}

// Evaluate thresholds normalized scores at 0.5, predicting positive on
// scores at or above it, and reports accuracy, sensitivity and specificity.
// Undefined ratios on empty classes evaluate to zero.
func Evaluate(scores, labels []float32) Metrics {
	var tp, tn, fp, fn float32
	for i, score := range scores {
		predicted := score >= 0.5
		actual := labels[i] > 0
		switch {
		case predicted && actual:
			tp++
		case predicted && !actual:
			fp++
		case !predicted && actual:
			fn++
		default:
			tn++
		}
	}
	var metrics Metrics
	if total := tp + tn + fp + fn; total > 0 {
		metrics.Accuracy = (tp + tn) / total
	}
	if tp+fn > 0 {
		metrics.Sensitivity = tp / (tp + fn)
	}
	if tn+fp > 0 {
		metrics.Specificity = tn / (tn + fp)
	}
	return metrics
}
