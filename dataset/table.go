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

package dataset

import (
	"fmt"
	"math"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/samber/lo"

	"github.com/ampscore/ampscore/base"
	"github.com/ampscore/ampscore/common/parallel"
)

// InsufficientSamplesError is returned when a table holds fewer than two
// distinct samples and therefore cannot be partitioned into train and test
// sets.
type InsufficientSamplesError struct {
	NumSamples int
}

func (e *InsufficientSamplesError) Error() string {
	return fmt.Sprintf("insufficient samples to partition: %d < 2", e.NumSamples)
}

// Table is a columnar collection of labeled spatial observations. Each
// observation belongs to exactly one sample, carries a 2D coordinate, a
// binary label and a dense feature vector. Observations are read-only once
// added.
type Table struct {
	featureNames []string
	sampleDict   *FreqDict
	samples      []int32
	x            []int32
	y            []int32
	labels       []float32
	features     [][]float32
}

func NewTable(featureNames []string, capacity int) *Table {
	return &Table{
		featureNames: featureNames,
		sampleDict:   NewFreqDict(),
		samples:      make([]int32, 0, capacity),
		x:            make([]int32, 0, capacity),
		y:            make([]int32, 0, capacity),
		labels:       make([]float32, 0, capacity),
		features:     make([][]float32, 0, capacity),
	}
}

// Add appends one observation. The feature vector is referenced as-is and
// must not be mutated by the caller afterwards.
func (t *Table) Add(sampleId string, x, y int32, label float32, features []float32) {
	t.samples = append(t.samples, int32(t.sampleDict.Id(sampleId)))
	t.x = append(t.x, x)
	t.y = append(t.y, y)
	t.labels = append(t.labels, label)
	t.features = append(t.features, features)
}

func (t *Table) Count() int {
	if t == nil {
		return 0
	}
	return len(t.labels)
}

func (t *Table) CountFeatures() int {
	return len(t.featureNames)
}

func (t *Table) CountSamples() int {
	return t.sampleDict.Count()
}

// CountPositive returns the number of observations labeled 1.
func (t *Table) CountPositive() int {
	count := 0
	for _, label := range t.labels {
		if label > 0 {
			count++
		}
	}
	return count
}

// CountNegative returns the number of observations labeled 0.
func (t *Table) CountNegative() int {
	return t.Count() - t.CountPositive()
}

// ObservationRange returns the smallest and largest number of observations
// contributed by a single sample.
func (t *Table) ObservationRange() (minObs, maxObs int) {
	minObs = t.Count()
	for i := 0; i < t.CountSamples(); i++ {
		minObs = min(minObs, t.sampleDict.Freq(i))
		maxObs = max(maxObs, t.sampleDict.Freq(i))
	}
	return
}

func (t *Table) GetFeatureNames() []string {
	return t.featureNames
}

func (t *Table) GetSamples() []int32 {
	return t.samples
}

func (t *Table) GetX() []int32 {
	return t.x
}

func (t *Table) GetY() []int32 {
	return t.y
}

func (t *Table) GetLabels() []float32 {
	return t.labels
}

func (t *Table) GetFeatures() [][]float32 {
	return t.features
}

// SampleId resolves a sample index back to its identifier.
func (t *Table) SampleId(index int32) string {
	s, _ := t.sampleDict.String(int(index))
	return s
}

// SampleIds returns all distinct sample identifiers in first-seen order.
func (t *Table) SampleIds() []string {
	return t.sampleDict.Strings()
}

// SubSet builds a table from the observations at the given indices. Feature
// vectors are shared with the parent table.
func (t *Table) SubSet(indices []int) *Table {
	out := NewTable(t.featureNames, len(indices))
	for _, i := range indices {
		out.samples = append(out.samples, int32(out.sampleDict.Id(t.SampleId(t.samples[i]))))
		out.x = append(out.x, t.x[i])
		out.y = append(out.y, t.y[i])
		out.labels = append(out.labels, t.labels[i])
		out.features = append(out.features, t.features[i])
	}
	return out
}

// SplitBySample partitions observations into train and test tables at sample
// granularity: every observation of a sample lands on the same side, so
// spatially correlated observations never leak between the two sets.
func (t *Table) SplitBySample(trainFraction float64, seed int64) (*Table, *Table, error) {
	numSamples := t.CountSamples()
	if numSamples < 2 {
		return nil, nil, &InsufficientSamplesError{NumSamples: numSamples}
	}
	numTrain := int(math.Round(float64(numSamples) * trainFraction))
	numTrain = min(max(numTrain, 1), numSamples-1)
	perm := base.NewRandomGenerator(seed).Perm(numSamples)
	trainSamples := mapset.NewSet[int32]()
	for _, s := range perm[:numTrain] {
		trainSamples.Add(int32(s))
	}
	trainIndices := make([]int, 0, t.Count())
	testIndices := make([]int, 0, t.Count())
	for i, sample := range t.samples {
		if trainSamples.Contains(sample) {
			trainIndices = append(trainIndices, i)
		} else {
			testIndices = append(testIndices, i)
		}
	}
	return t.SubSet(trainIndices), t.SubSet(testIndices), nil
}

// Folds splits observations into k cross validation folds.
func (t *Table) Folds(k int, seed int64) (trainFolds, testFolds []*Table) {
	trainFolds = make([]*Table, k)
	testFolds = make([]*Table, k)
	perm := base.NewRandomGenerator(seed).Perm(t.Count())
	begin := 0
	for i, chunk := range parallel.Split(perm, k) {
		end := begin + len(chunk)
		testFolds[i] = t.SubSet(chunk)
		trainFolds[i] = t.SubSet(lo.Flatten([][]int{perm[:begin], perm[end:]}))
		begin = end
	}
	return
}
