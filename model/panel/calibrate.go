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
	"fmt"
	"sort"

	"github.com/ampscore/ampscore/base/log"
	"github.com/juju/errors"
	"go.uber.org/zap"
)

// DegenerateCalibrationError reports a raw score distribution with no spread,
// leaving no threshold to calibrate against.
type DegenerateCalibrationError struct {
	MinRaw float32
	MaxRaw float32
	Count  int
}

func (e *DegenerateCalibrationError) Error() string {
	return fmt.Sprintf("degenerate raw score distribution: all %d training scores equal %v", e.Count, e.MinRaw)
}

// Calibrate finds the cutpoint maximizing Youden's J statistic over the
// sorted distinct training raw scores, treating "score >= threshold" as the
// positive rule. Ties keep the lowest threshold. Returns the calibration
// anchors together with the best J. Runs on training scores only.
func Calibrate(scores, labels []float32) (Calibration, float32, error) {
	if len(scores) == 0 {
		return Calibration{}, 0, errors.New("no scores to calibrate")
	}
	var positive, negative float32
	for _, label := range labels {
		if label > 0 {
			positive++
		} else {
			negative++
		}
	}
	if positive == 0 || negative == 0 {
		return Calibration{}, 0, errors.Errorf("calibration requires both classes (%v positive, %v negative)", positive, negative)
	}
	order := make([]int, len(scores))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(i, j int) bool {
		return scores[order[i]] < scores[order[j]]
	})
	calibration := Calibration{
		MinRaw: scores[order[0]],
		MaxRaw: scores[order[len(order)-1]],
	}
	if calibration.MinRaw == calibration.MaxRaw {
		return Calibration{}, 0, &DegenerateCalibrationError{
			MinRaw: calibration.MinRaw,
			MaxRaw: calibration.MaxRaw,
			Count:  len(scores),
		}
	}
	// Walk candidates ascending, tracking class counts below the threshold.
	// The strict improvement test keeps the lowest threshold on J ties.
	var posBelow, negBelow float32
	bestJ := float32(-1)
	for i := 0; i < len(order); {
		value := scores[order[i]]
		sensitivity := (positive - posBelow) / positive
		specificity := negBelow / negative
		if j := sensitivity + specificity - 1; j > bestJ {
			bestJ = j
			calibration.Cutpoint = value
		}
		for i < len(order) && scores[order[i]] == value {
			if labels[order[i]] > 0 {
				posBelow++
			} else {
				negBelow++
			}
			i++
		}
	}
	log.Logger().Info("calibrated cutpoint",
		zap.Float32("cutpoint", calibration.Cutpoint),
		zap.Float32("min_raw", calibration.MinRaw),
		zap.Float32("max_raw", calibration.MaxRaw),
		zap.Float32("youden_j", bestJ))
	return calibration, bestJ, nil
}
