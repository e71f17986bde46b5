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
	"bytes"
	"context"
	"errors"
	"runtime"
	"testing"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ampscore/ampscore/dataset"
	"github.com/ampscore/ampscore/model"
	"github.com/ampscore/ampscore/model/selector"
)

// newPipelineTable builds the acceptance scenario: 10 case and 10 control
// samples, 100 observations each, 500 features of which the first four carry
// the class shift. Equal means remove the signal entirely.
func newPipelineTable(positiveMean, negativeMean float32) *dataset.Table {
	return dataset.Simulate(dataset.SimulatorConfig{
		PositiveSamples:       10,
		NegativeSamples:       10,
		ObservationsPerSample: 100,
		NumFeatures:           500,
		PositiveMean:          positiveMean,
		NegativeMean:          negativeMean,
		StdDev:                1,
		Informative:           4,
		RandomState:           42,
	})
}

// newSmallTable keeps the fast pipeline tests cheap: 10 samples, 60 features,
// 6 informative with a one sigma shift.
func newSmallTable() *dataset.Table {
	return dataset.Simulate(dataset.SimulatorConfig{
		PositiveSamples:       5,
		NegativeSamples:       5,
		ObservationsPerSample: 25,
		NumFeatures:           60,
		PositiveMean:          3,
		NegativeMean:          2,
		StdDev:                1,
		Informative:           6,
		RandomState:           7,
	})
}

func newSmallConfig() *TrainConfig {
	return NewTrainConfig().
		SetSeed(11).
		SetJobs(runtime.NumCPU()).
		SetForestParams(model.Params{model.NTrees: 100, model.TopK: 10}).
		SetSVMParams(model.Params{model.TopK: 10})
}

func TestTrain(t *testing.T) {
	ctx := context.Background()
	table := newPipelineTable(4, 2)
	report, err := Train(ctx, table, NewTrainConfig().SetJobs(runtime.NumCPU()))
	require.NoError(t, err)
	require.False(t, report.Panel.Invalid())
	assert.False(t, report.Panel.Degraded)

	// held out metrics clear the acceptance bar
	assert.Greater(t, report.TestMetrics.Accuracy, float32(0.90))
	assert.Greater(t, report.TestMetrics.Sensitivity, float32(0.85))
	assert.Greater(t, report.TestMetrics.Specificity, float32(0.85))
	assert.Greater(t, report.TrainMetrics.Accuracy, float32(0.90))
	assert.Greater(t, report.YoudenJ, float32(0.7))

	// samples split 13 to 7 and never straddle the partition
	assert.Equal(t, 13, report.TrainSet.CountSamples())
	assert.Equal(t, 7, report.TestSet.CountSamples())
	trainSamples := mapset.NewSet(report.TrainSet.SampleIds()...)
	for _, sampleId := range report.TestSet.SampleIds() {
		assert.False(t, trainSamples.Contains(sampleId))
	}
	assert.Len(t, report.TrainScores, report.TrainSet.Count())
	assert.Len(t, report.TestScores, report.TestSet.Count())

	// every informative feature reaches consensus, indices stay ascending
	for f := int32(0); f < 4; f++ {
		assert.Contains(t, report.Panel.Features, f)
	}
	for i := 1; i < len(report.Panel.Features); i++ {
		assert.Less(t, report.Panel.Features[i-1], report.Panel.Features[i])
	}
	assert.Len(t, report.Panel.FeatureNames, len(report.Panel.Features))
	assert.Len(t, report.Panel.Weights, len(report.Panel.Features))

	// all three selectors contributed
	require.Len(t, report.Panel.Diagnostics, 3)
	for _, diagnostic := range report.Panel.Diagnostics {
		assert.Empty(t, diagnostic.Error)
		assert.Greater(t, diagnostic.Score.NumSelected, 0)
	}

	// the serialized panel reproduces the held out scores bit for bit
	buf := bytes.NewBuffer(nil)
	require.NoError(t, report.Panel.Marshal(buf))
	decoded := &Panel{}
	require.NoError(t, decoded.Unmarshal(buf))
	assert.Equal(t, report.Panel.NumFeatures, decoded.NumFeatures)
	assert.Equal(t, report.Panel.Features, decoded.Features)
	assert.Equal(t, report.Panel.FeatureNames, decoded.FeatureNames)
	assert.Equal(t, report.Panel.Weights, decoded.Weights)
	assert.Equal(t, report.Panel.Calibration, decoded.Calibration)
	assert.Equal(t, report.Panel.Diagnostics, decoded.Diagnostics)
	assert.Equal(t, report.Panel.Seed, decoded.Seed)
	assert.True(t, report.Panel.CreatedAt.Equal(decoded.CreatedAt))
	rescored := decoded.ScoreAll(ctx, report.TestSet, runtime.NumCPU())
	assert.Equal(t, report.TestScores, rescored)
}

func TestTrainNoSignal(t *testing.T) {
	ctx := context.Background()
	table := newPipelineTable(3, 3)
	report, err := Train(ctx, table, NewTrainConfig().SetJobs(runtime.NumCPU()))
	if err != nil {
		// with identical class distributions the vote may come up empty
		var noConsensusErr *selector.NoConsensusError
		var fitErr *selector.FitError
		assert.True(t, errors.As(err, &noConsensusErr) || errors.As(err, &fitErr))
		return
	}
	assert.InDelta(t, 0.5, report.TestMetrics.Accuracy, 0.15)
	assert.Less(t, len(report.Panel.Features), 150)
}

func TestTrainDeterminism(t *testing.T) {
	ctx := context.Background()
	table := newSmallTable()
	first, err := Train(ctx, table, newSmallConfig())
	require.NoError(t, err)
	second, err := Train(ctx, table, newSmallConfig())
	require.NoError(t, err)
	assert.Equal(t, first.Panel.Features, second.Panel.Features)
	assert.Equal(t, first.Panel.Weights, second.Panel.Weights)
	assert.Equal(t, first.Panel.Calibration, second.Panel.Calibration)
	assert.Equal(t, first.TestScores, second.TestScores)
	assert.Equal(t, first.TestMetrics, second.TestMetrics)
	assert.Equal(t, first.YoudenJ, second.YoudenJ)
}

func TestTrainSelectorIsolation(t *testing.T) {
	// an impossible fold count breaks the lasso, the run carries on with the
	// other two selectors
	ctx := context.Background()
	table := newSmallTable()
	config := newSmallConfig().SetLassoParams(model.Params{model.NFolds: 100000})
	report, err := Train(ctx, table, config)
	require.NoError(t, err)
	require.Len(t, report.Panel.Diagnostics, 3)
	assert.NotEmpty(t, report.Panel.Diagnostics[0].Error)
	assert.Empty(t, report.Panel.Diagnostics[1].Error)
	assert.Empty(t, report.Panel.Diagnostics[2].Error)
	assert.False(t, report.Panel.Degraded)
	assert.NotEmpty(t, report.Panel.Features)
}

func TestTrainDegraded(t *testing.T) {
	// only the forest stays usable, its selection passes through the vote
	ctx := context.Background()
	table := newSmallTable()
	config := newSmallConfig().
		SetLassoParams(model.Params{model.NFolds: 100000}).
		SetSVMParams(model.Params{model.NFolds: 100000})
	report, err := Train(ctx, table, config)
	require.NoError(t, err)
	assert.True(t, report.Panel.Degraded)
	assert.NotEmpty(t, report.Panel.Diagnostics[0].Error)
	assert.Empty(t, report.Panel.Diagnostics[1].Error)
	assert.NotEmpty(t, report.Panel.Diagnostics[2].Error)
	assert.NotEmpty(t, report.Panel.Features)
}

func TestTrainNoUsableSelector(t *testing.T) {
	// a single class table fails every selector
	table := dataset.Simulate(dataset.SimulatorConfig{
		NegativeSamples:       4,
		ObservationsPerSample: 10,
		NumFeatures:           8,
		NegativeMean:          2,
		StdDev:                1,
		RandomState:           0,
	})
	_, err := Train(context.Background(), table, nil)
	var fitErr *selector.FitError
	assert.ErrorAs(t, err, &fitErr)
}

func TestTrainInsufficientSamples(t *testing.T) {
	table := dataset.Simulate(dataset.SimulatorConfig{
		PositiveSamples:       1,
		ObservationsPerSample: 10,
		NumFeatures:           8,
		PositiveMean:          4,
		NegativeMean:          2,
		StdDev:                1,
		RandomState:           0,
	})
	_, err := Train(context.Background(), table, nil)
	var insufficientErr *dataset.InsufficientSamplesError
	require.ErrorAs(t, err, &insufficientErr)
	assert.Equal(t, 1, insufficientErr.NumSamples)
}
