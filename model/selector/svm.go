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
	"context"
	"io"
	"time"

	"github.com/ampscore/ampscore/base"
	"github.com/ampscore/ampscore/base/log"
	"github.com/ampscore/ampscore/base/progress"
	"github.com/ampscore/ampscore/common/encoding"
	"github.com/ampscore/ampscore/common/floats"
	"github.com/ampscore/ampscore/common/parallel"
	"github.com/ampscore/ampscore/dataset"
	"github.com/ampscore/ampscore/model"
	"github.com/c-bata/goptuna"
	"github.com/chewxy/math32"
	"github.com/juju/errors"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// SVM ranks features by the absolute weights of a linear support vector
// machine trained on the hinge loss with the Pegasos stochastic subgradient
// schedule. The topK features by weight magnitude form the selection. Cross
// validation measures the accuracy of the full model and of a model refitted
// on the selection alone, so the cost of truncation stays visible.
//
// Hyper-parameters:
//
//	NEpochs - The number of passes over the training set. Default is 50.
//	Reg     - The L2 regularization strength. Default is 1e-3.
//	TopK    - The selection size. Default is 100.
//	NFolds  - The number of cross validation folds. Default is 5.
type SVM struct {
	BaseSelector
	// Hyper parameters
	nEpochs int
	reg     float32
	topK    int
	nFolds  int
	// Learned parameters
	Weights []float32
	Bias    float32
}

// NewSVM creates a margin classifier selector.
func NewSVM(params model.Params) *SVM {
	svm := new(SVM)
	svm.SetParams(params)
	return svm
}

// SetParams sets hyper-parameters of the margin classifier selector.
func (s *SVM) SetParams(params model.Params) {
	s.BaseSelector.SetParams(params)
	// Setup hyper-parameters
	s.nEpochs = s.Params.GetInt(model.NEpochs, 50)
	s.reg = s.Params.GetFloat32(model.Reg, 1e-3)
	s.topK = s.Params.GetInt(model.TopK, 100)
	s.nFolds = s.Params.GetInt(model.NFolds, 5)
}

func (s *SVM) GetParamsGrid(withSize bool) model.ParamsGrid {
	return model.ParamsGrid{
		model.NEpochs: lo.If(withSize, []interface{}{20, 50, 100}).Else([]interface{}{50}),
		model.Reg:     []interface{}{1e-4, 1e-3, 1e-2, 1e-1},
		model.TopK:    []interface{}{50, 100, 200},
	}
}

func (s *SVM) SuggestParams(trial goptuna.Trial) model.Params {
	return model.Params{
		model.NEpochs: lo.Must(trial.SuggestInt(string(model.NEpochs), 20, 100)),
		model.Reg:     lo.Must(trial.SuggestLogFloat(string(model.Reg), 1e-4, 1e-1)),
		model.TopK:    lo.Must(trial.SuggestInt(string(model.TopK), 50, 200)),
	}
}

// Fit the margin classifier selector. Its task complexity is O(2*s.nFolds+1).
func (s *SVM) Fit(ctx context.Context, trainSet, testSet *dataset.Table, config *FitConfig) Score {
	config = config.LoadDefaultIfNil()
	log.Logger().Info("fit svm",
		zap.Int("train_set_size", trainSet.Count()),
		zap.Int("test_set_size", testSet.Count()),
		zap.Any("params", s.GetParams()),
		zap.Any("config", config))
	if trainSet.CountPositive() == 0 || trainSet.CountNegative() == 0 {
		log.Logger().Error("svm requires both classes in the training set",
			zap.Int("n_positive", trainSet.CountPositive()),
			zap.Int("n_negative", trainSet.CountNegative()))
		return Score{}
	}
	if trainSet.Count() < s.nFolds {
		log.Logger().Error("not enough observations for cross validation",
			zap.Int("n_observations", trainSet.Count()),
			zap.Int("n_folds", s.nFolds))
		return Score{}
	}
	s.Init(trainSet)
	// Fit the final model on the full training set
	fitStart := time.Now()
	scaler := NewScaler(trainSet.GetFeatures(), trainSet.CountFeatures())
	x := scaler.Transform(trainSet.GetFeatures())
	y := trainSet.GetLabels()
	_, span := progress.Start(ctx, "SVM.Fit", 2*s.nFolds+1)
	var cost float32
	s.Weights, s.Bias, cost = fitLinearSVM(x, y, s.reg, s.nEpochs, base.NewRandomGenerator(s.GetRandomGenerator().Int63()))
	s.Importance = make([]float32, len(s.Weights))
	for j, weight := range s.Weights {
		s.Importance[j] = math32.Abs(weight)
	}
	s.selectTopK(s.topK)
	span.Add(1)
	fitTime := time.Since(fitStart)
	// Cross validate accuracy before and after truncating to the selection
	evalStart := time.Now()
	trainFolds, testFolds := trainSet.Folds(s.nFolds, s.GetRandomGenerator().Int63())
	rngs := make([]base.RandomGenerator, 2*s.nFolds)
	for i := range rngs {
		rngs[i] = base.NewRandomGenerator(s.GetRandomGenerator().Int63())
	}
	fullAccuracy := make([]float32, s.nFolds)
	truncatedAccuracy := make([]float32, s.nFolds)
	_ = parallel.Parallel(ctx, 2*s.nFolds, config.Jobs, func(_, jobId int) error {
		foldId := jobId % s.nFolds
		foldScaler := NewScaler(trainFolds[foldId].GetFeatures(), trainFolds[foldId].CountFeatures())
		foldX := foldScaler.Transform(trainFolds[foldId].GetFeatures())
		foldY := trainFolds[foldId].GetLabels()
		heldX := foldScaler.Transform(testFolds[foldId].GetFeatures())
		heldY := testFolds[foldId].GetLabels()
		if jobId < s.nFolds {
			w, b, _ := fitLinearSVM(foldX, foldY, s.reg, s.nEpochs, rngs[jobId])
			fullAccuracy[foldId] = decisionAccuracy(w, b, heldX, heldY)
		} else {
			w, b, _ := fitLinearSVM(projectColumns(foldX, s.Selection), foldY, s.reg, s.nEpochs, rngs[jobId])
			truncatedAccuracy[foldId] = decisionAccuracy(w, b, projectColumns(heldX, s.Selection), heldY)
		}
		span.Add(1)
		return nil
	})
	evalTime := time.Since(evalStart)
	span.End()
	score := Score{
		Accuracy:          floats.Mean(fullAccuracy),
		CVError:           1 - floats.Mean(fullAccuracy),
		TruncatedAccuracy: floats.Mean(truncatedAccuracy),
		NumSelected:       len(s.Selection),
	}
	if testSet.Count() > 0 {
		buffer := make([]float32, testSet.CountFeatures())
		posDecision, negDecision := splitDecisions(testSet, func(row []float32) float32 {
			scaler.TransformTo(row, buffer)
			return floats.Dot(s.Weights, buffer) + s.Bias
		})
		score.Accuracy = Accuracy(posDecision, negDecision)
		score.AUC = AUC(posDecision, negDecision)
	}
	log.Logger().Info("fit svm complete",
		zap.String("fit_time", fitTime.String()),
		zap.String("eval_time", evalTime.String()),
		zap.Float32("hinge_loss", cost),
		zap.Float32("cv_accuracy", 1-score.CVError),
		zap.Float32("truncated_cv_accuracy", score.TruncatedAccuracy),
		zap.Int("n_selected", score.NumSelected))
	return score
}

// fitLinearSVM minimizes the regularized hinge loss with the Pegasos
// schedule, returning the weights, the bias and the hinge loss of the last
// pass. The bias is not regularized.
func fitLinearSVM(x [][]float32, y []float32, reg float32, nEpochs int, rng base.RandomGenerator) (w []float32, b, cost float32) {
	w = make([]float32, len(x[0]))
	t := 0
	for epoch := 1; epoch <= nEpochs; epoch++ {
		cost = 0
		for _, i := range rng.Perm(len(x)) {
			t++
			eta := 1 / (reg * float32(t))
			label := float32(-1)
			if y[i] > 0 {
				label = 1
			}
			margin := label * (floats.Dot(w, x[i]) + b)
			floats.MulConst(w, 1-eta*reg)
			if margin < 1 {
				cost += 1 - margin
				floats.MulConstAdd(x[i], eta*label, w)
				b += eta * label
			}
		}
	}
	return
}

// decisionAccuracy evaluates a linear decision rule on held-out rows.
func decisionAccuracy(w []float32, b float32, x [][]float32, y []float32) float32 {
	var posDecision, negDecision []float32
	for i, row := range x {
		if y[i] > 0 {
			posDecision = append(posDecision, floats.Dot(w, row)+b)
		} else {
			negDecision = append(negDecision, floats.Dot(w, row)+b)
		}
	}
	return Accuracy(posDecision, negDecision)
}

// projectColumns keeps the given feature columns of every row.
func projectColumns(features [][]float32, columns []int32) [][]float32 {
	projected := base.NewMatrix32(len(features), len(columns))
	for i, row := range features {
		for c, j := range columns {
			projected[i][c] = row[j]
		}
	}
	return projected
}

// Marshal model into byte stream.
func (s *SVM) Marshal(w io.Writer) error {
	if err := s.BaseSelector.Marshal(w); err != nil {
		return errors.Trace(err)
	}
	if err := encoding.WriteVector(w, s.Weights); err != nil {
		return errors.Trace(err)
	}
	if err := encoding.WriteGob(w, s.Bias); err != nil {
		return errors.Trace(err)
	}
	return nil
}

// Unmarshal model from byte stream.
func (s *SVM) Unmarshal(r io.Reader) error {
	if err := s.BaseSelector.Unmarshal(r); err != nil {
		return errors.Trace(err)
	}
	var err error
	if s.Weights, err = encoding.ReadVector(r); err != nil {
		return errors.Trace(err)
	}
	if err := encoding.ReadGob(r, &s.Bias); err != nil {
		return errors.Trace(err)
	}
	s.SetParams(s.Params)
	return nil
}

func (s *SVM) Clear() {
	s.BaseSelector.Clear()
	s.Weights = nil
	s.Bias = 0
}
