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
	"context"
	"time"

	"github.com/ampscore/ampscore/base"
	"github.com/ampscore/ampscore/base/log"
	"github.com/ampscore/ampscore/base/progress"
	"github.com/ampscore/ampscore/common/parallel"
	"github.com/ampscore/ampscore/dataset"
	"github.com/ampscore/ampscore/model"
	"github.com/ampscore/ampscore/model/selector"
	"github.com/juju/errors"
	"go.uber.org/zap"
	"modernc.org/mathutil"
)

// TrainConfig controls a panel training run.
type TrainConfig struct {
	TrainFraction float64
	MinVotes      int
	Seed          int64
	Jobs          int
	Verbose       int
	LassoParams   model.Params
	ForestParams  model.Params
	SVMParams     model.Params
}

func NewTrainConfig() *TrainConfig {
	return &TrainConfig{
		TrainFraction: 2.0 / 3,
		MinVotes:      2,
		Jobs:          1,
		Verbose:       10,
	}
}

func (config *TrainConfig) SetTrainFraction(fraction float64) *TrainConfig {
	config.TrainFraction = fraction
	return config
}

func (config *TrainConfig) SetMinVotes(minVotes int) *TrainConfig {
	config.MinVotes = minVotes
	return config
}

func (config *TrainConfig) SetSeed(seed int64) *TrainConfig {
	config.Seed = seed
	return config
}

func (config *TrainConfig) SetJobs(jobs int) *TrainConfig {
	config.Jobs = jobs
	return config
}

func (config *TrainConfig) SetVerbose(verbose int) *TrainConfig {
	config.Verbose = verbose
	return config
}

func (config *TrainConfig) SetLassoParams(params model.Params) *TrainConfig {
	config.LassoParams = params
	return config
}

func (config *TrainConfig) SetForestParams(params model.Params) *TrainConfig {
	config.ForestParams = params
	return config
}

func (config *TrainConfig) SetSVMParams(params model.Params) *TrainConfig {
	config.SVMParams = params
	return config
}

func (config *TrainConfig) LoadDefaultIfNil() *TrainConfig {
	if config == nil {
		return NewTrainConfig()
	}
	return config
}

// Report is the outcome of a training run: the panel, the split it was
// trained on, normalized scores and summary metrics for both partitions.
type Report struct {
	Panel        *Panel
	TrainSet     *dataset.Table
	TestSet      *dataset.Table
	TrainScores  []float32
	TestScores   []float32
	TrainMetrics Metrics
	TestMetrics  Metrics
	YoudenJ      float32
}

// Train runs the full panel pipeline: sample level split, three concurrent
// selector fits with isolated failures, consensus vote, weight fit,
// calibration and evaluation. Selector failures degrade the run; consensus,
// weight and calibration failures are fatal.
func Train(ctx context.Context, table *dataset.Table, config *TrainConfig) (*Report, error) {
	config = config.LoadDefaultIfNil()
	log.Logger().Info("train panel",
		zap.Int("n_observations", table.Count()),
		zap.Int("n_samples", table.CountSamples()),
		zap.Int("n_features", table.CountFeatures()),
		zap.Float64("train_fraction", config.TrainFraction),
		zap.Int("min_votes", config.MinVotes),
		zap.Int64("seed", config.Seed))
	trainStart := time.Now()
	// Fan the master seed out to named stage seeds in a fixed order so every
	// stage stays deterministic independently of scheduling.
	rng := base.NewRandomGenerator(config.Seed)
	splitSeed := rng.Int63()
	selectors := []selector.Selector{
		selector.NewLasso(model.Params{model.RandomState: rng.Int63()}.Overwrite(config.LassoParams)),
		selector.NewForest(model.Params{model.RandomState: rng.Int63()}.Overwrite(config.ForestParams)),
		selector.NewSVM(model.Params{model.RandomState: rng.Int63()}.Overwrite(config.SVMParams)),
	}
	trainSet, testSet, err := table.SplitBySample(config.TrainFraction, splitSeed)
	if err != nil {
		return nil, errors.Trace(err)
	}
	log.Logger().Info("split samples",
		zap.Int("train_samples", trainSet.CountSamples()),
		zap.Int("test_samples", testSet.CountSamples()),
		zap.Int("train_observations", trainSet.Count()),
		zap.Int("test_observations", testSet.Count()))
	newCtx, span := progress.Start(ctx, "Panel.Train", 4)
	// Fit the three selectors concurrently. A failed selector is isolated, it
	// never takes the run down on its own.
	names := make([]string, len(selectors))
	for i, s := range selectors {
		names[i] = selector.GetSelectorName(s)
	}
	scores := make([]selector.Score, len(selectors))
	fitErrors := make([]error, len(selectors))
	fitConfig := selector.NewFitConfig().
		SetVerbose(config.Verbose).
		SetJobs(mathutil.Max(1, config.Jobs/len(selectors)))
	_ = parallel.Parallel(newCtx, len(selectors), config.Jobs, func(_, i int) error {
		defer func() {
			if r := recover(); r != nil {
				fitErrors[i] = &selector.FitError{Name: names[i], Err: errors.Errorf("%v", r)}
				log.Logger().Error("selector fit panicked",
					zap.String("selector", names[i]),
					zap.Any("recovered", r))
			}
		}()
		scores[i] = selectors[i].Fit(newCtx, trainSet, testSet, fitConfig)
		if selectors[i].Invalid() {
			fitErrors[i] = &selector.FitError{Name: names[i], Err: errors.New("fit produced no ranking")}
		}
		return nil
	})
	// Selectors that fit and selected at least one feature take part in the
	// vote.
	diagnostics := make([]Diagnostic, len(selectors))
	selections := make([][]int32, 0, len(selectors))
	for i, s := range selectors {
		diagnostics[i] = Diagnostic{Selector: names[i], Score: scores[i]}
		if fitErrors[i] != nil {
			diagnostics[i].Error = fitErrors[i].Error()
			log.Logger().Error("selector failed",
				zap.String("selector", names[i]),
				zap.Error(fitErrors[i]))
			continue
		}
		if len(s.Selected()) == 0 {
			log.Logger().Warn("selector selected no features",
				zap.String("selector", names[i]))
			continue
		}
		selections = append(selections, s.Selected())
	}
	span.Add(1)
	if len(selections) == 0 {
		if err := firstFitError(fitErrors); err != nil {
			progress.Fail(newCtx, err)
			return nil, errors.Annotate(err, "no usable selector")
		}
		err := &selector.NoConsensusError{NumSelectors: len(selectors), MinVotes: config.MinVotes}
		progress.Fail(newCtx, err)
		return nil, errors.Trace(err)
	}
	degraded := len(selections) < 2
	consensus, err := selector.Vote(selections, config.MinVotes)
	if err != nil {
		progress.Fail(newCtx, err)
		return nil, errors.Trace(err)
	}
	if degraded {
		log.Logger().Warn("reduced confidence run",
			zap.Int("usable_selectors", len(selections)),
			zap.Int("n_consensus", len(consensus)))
	}
	featureNames := make([]string, len(consensus))
	allNames := table.GetFeatureNames()
	for i, f := range consensus {
		featureNames[i] = allNames[f]
	}
	weights, err := FitWeights(trainSet, consensus, featureNames)
	if err != nil {
		progress.Fail(newCtx, err)
		return nil, errors.Trace(err)
	}
	span.Add(1)
	p := &Panel{
		NumFeatures:  table.CountFeatures(),
		Features:     consensus,
		FeatureNames: featureNames,
		Weights:      weights,
		Diagnostics:  diagnostics,
		Degraded:     degraded,
		Seed:         config.Seed,
		CreatedAt:    time.Now().UTC(),
	}
	// Raw training scores drive the calibration, exactly once.
	rawTrain := make([]float32, trainSet.Count())
	trainX := trainSet.GetFeatures()
	_ = parallel.For(newCtx, trainSet.Count(), config.Jobs, func(i int) {
		rawTrain[i] = p.Score(trainX[i])
	})
	calibration, youdenJ, err := Calibrate(rawTrain, trainSet.GetLabels())
	if err != nil {
		progress.Fail(newCtx, err)
		return nil, errors.Trace(err)
	}
	p.Calibration = calibration
	span.Add(1)
	report := &Report{
		Panel:       p,
		TrainSet:    trainSet,
		TestSet:     testSet,
		TrainScores: calibration.NormalizeAll(rawTrain),
		TestScores:  p.ScoreAll(newCtx, testSet, config.Jobs),
		YoudenJ:     youdenJ,
	}
	report.TrainMetrics = Evaluate(report.TrainScores, trainSet.GetLabels())
	report.TestMetrics = Evaluate(report.TestScores, testSet.GetLabels())
	span.Add(1)
	span.End()
	log.Logger().Info("train panel complete",
		append([]zap.Field{
			zap.Int("n_consensus", len(consensus)),
			zap.Bool("degraded", degraded),
			zap.String("train_time", time.Since(trainStart).String()),
		}, report.TestMetrics.ZapFields()...)...)
	return report, nil
}

func firstFitError(errs []error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
