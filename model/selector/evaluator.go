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
	"sort"

	"github.com/ampscore/ampscore/dataset"
	"modernc.org/sortutil"
)

// splitDecisions evaluates a decision function over a table and groups the
// decision values by class. A positive decision value predicts the positive
// class.
func splitDecisions(table *dataset.Table, decision func([]float32) float32) (posDecision, negDecision []float32) {
	for i, row := range table.GetFeatures() {
		if table.GetLabels()[i] > 0 {
			posDecision = append(posDecision, decision(row))
		} else {
			negDecision = append(negDecision, decision(row))
		}
	}
	return
}

func Precision(posDecision, negDecision []float32) float32 {
	var tp, fp float32
	for _, p := range posDecision {
		if p > 0 { // true positive
			tp++
		}
	}
	for _, p := range negDecision {
		if p > 0 { // false positive
			fp++
		}
	}
	if tp+fp == 0 {
		return 0
	}
	return tp / (tp + fp)
}

func Recall(posDecision, _ []float32) float32 {
	var tp, fn float32
	for _, p := range posDecision {
		if p > 0 { // true positive
			tp++
		} else { // false negative
			fn++
		}
	}
	if tp+fn == 0 {
		return 0
	}
	return tp / (tp + fn)
}

func Accuracy(posDecision, negDecision []float32) float32 {
	var correct float32
	for _, p := range posDecision {
		if p > 0 {
			correct++
		}
	}
	for _, p := range negDecision {
		if p <= 0 {
			correct++
		}
	}
	if len(posDecision)+len(negDecision) == 0 {
		return 0
	}
	return correct / float32(len(posDecision)+len(negDecision))
}

func AUC(posDecision, negDecision []float32) float32 {
	sort.Sort(sortutil.Float32Slice(posDecision))
	sort.Sort(sortutil.Float32Slice(negDecision))
	var sum float32
	var nPos int
	for pPos := range posDecision {
		// find the negative sample with the greatest decision value less than
		// the current positive sample
		for nPos < len(negDecision) && negDecision[nPos] < posDecision[pPos] {
			nPos++
		}
		// add the number of negative samples with less decision values than
		// the current positive sample
		sum += float32(nPos)
	}
	if len(posDecision)*len(negDecision) == 0 {
		return 0
	}
	return sum / float32(len(posDecision)*len(negDecision))
}
