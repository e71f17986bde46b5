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

	"github.com/chewxy/math32"

	"github.com/ampscore/ampscore/base"
)

// SimulatorConfig controls the synthetic two-class observation generator.
type SimulatorConfig struct {
	PositiveSamples       int     // number of positive (case) samples
	NegativeSamples       int     // number of negative (control) samples
	ObservationsPerSample int     // observations laid out on a grid per sample
	NumFeatures           int     // feature vector length
	PositiveMean          float32 // mean of informative features in positive samples
	NegativeMean          float32 // mean of every feature in negative samples
	StdDev                float32 // shared standard deviation
	Informative           int     // features carrying the class shift (0 means all)
	RandomState           int64
}

// Simulate builds a synthetic observation table with two classes of samples.
// Informative features follow N(PositiveMean, StdDev) in positive samples and
// N(NegativeMean, StdDev) in negative samples; the remaining features follow
// the negative distribution in both classes. Observations within a sample are
// placed on a square grid.
func Simulate(cfg SimulatorConfig) *Table {
	informative := cfg.Informative
	if informative <= 0 || informative > cfg.NumFeatures {
		informative = cfg.NumFeatures
	}
	featureNames := make([]string, cfg.NumFeatures)
	for j := range featureNames {
		featureNames[j] = fmt.Sprintf("feature_%d", j+1)
	}
	width := int32(math32.Ceil(math32.Sqrt(float32(cfg.ObservationsPerSample))))
	if width < 1 {
		width = 1
	}
	rng := base.NewRandomGenerator(cfg.RandomState)
	table := NewTable(featureNames, (cfg.PositiveSamples+cfg.NegativeSamples)*cfg.ObservationsPerSample)
	addSample := func(sampleId string, label float32) {
		for o := 0; o < cfg.ObservationsPerSample; o++ {
			var features []float32
			if label > 0 {
				features = rng.NewNormalVector(informative, cfg.PositiveMean, cfg.StdDev)
				features = append(features, rng.NewNormalVector(cfg.NumFeatures-informative, cfg.NegativeMean, cfg.StdDev)...)
			} else {
				features = rng.NewNormalVector(cfg.NumFeatures, cfg.NegativeMean, cfg.StdDev)
			}
			table.Add(sampleId, int32(o)%width, int32(o)/width, label, features)
		}
	}
	for s := 0; s < cfg.NegativeSamples; s++ {
		addSample(fmt.Sprintf("control_%d", s+1), 0)
	}
	for s := 0; s < cfg.PositiveSamples; s++ {
		addSample(fmt.Sprintf("case_%d", s+1), 1)
	}
	return table
}
