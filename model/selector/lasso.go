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
	"fmt"
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

// Lasso selects features by L1 regularized logistic regression. Coefficients
// are fitted by cyclic coordinate descent over a geometric path of penalties,
// warm started from the penalty that zeroes every coefficient. The penalty is
// chosen by k-fold cross validation minimizing the mean misclassification
// error, preferring the sparsest fit on ties. Features with non-zero
// coefficients at the chosen penalty form the selection, which may be empty.
//
// Hyper-parameters:
//
//	NLambdas  - The number of penalties on the path. Default is 20.
//	NFolds    - The number of cross validation folds. Default is 5.
//	NEpochs   - The maximum number of sweeps per penalty. Default is 100.
//	Tolerance - The convergence threshold on coefficient updates. Default is 1e-4.
type Lasso struct {
	BaseSelector
	// Hyper parameters
	nLambdas int
	nFolds   int
	nEpochs  int
	tol      float32
	// Learned parameters
	Lambda       float32
	Coefficients []float32
	Intercept    float32
}

// NewLasso creates a sparse linear selector.
func NewLasso(params model.Params) *Lasso {
	lasso := new(Lasso)
	lasso.SetParams(params)
	return lasso
}

// SetParams sets hyper-parameters of the sparse linear selector.
func (l *Lasso) SetParams(params model.Params) {
	l.BaseSelector.SetParams(params)
	// Setup hyper-parameters
	l.nLambdas = l.Params.GetInt(model.NLambdas, 20)
	l.nFolds = l.Params.GetInt(model.NFolds, 5)
	l.nEpochs = l.Params.GetInt(model.NEpochs, 100)
	l.tol = l.Params.GetFloat32(model.Tolerance, 1e-4)
}

func (l *Lasso) GetParamsGrid(withSize bool) model.ParamsGrid {
	return model.ParamsGrid{
		model.NLambdas:  lo.If(withSize, []interface{}{10, 20, 50}).Else([]interface{}{20}),
		model.NFolds:    []interface{}{3, 5, 10},
		model.Tolerance: []interface{}{1e-3, 1e-4, 1e-5},
	}
}

func (l *Lasso) SuggestParams(trial goptuna.Trial) model.Params {
	return model.Params{
		model.NLambdas:  lo.Must(trial.SuggestInt(string(model.NLambdas), 10, 50)),
		model.NFolds:    lo.Must(trial.SuggestInt(string(model.NFolds), 3, 10)),
		model.Tolerance: lo.Must(trial.SuggestLogFloat(string(model.Tolerance), 1e-5, 1e-3)),
	}
}

// Fit the sparse linear selector. Its task complexity is O(l.nFolds+1).
func (l *Lasso) Fit(ctx context.Context, trainSet, testSet *dataset.Table, config *FitConfig) Score {
	config = config.LoadDefaultIfNil()
	log.Logger().Info("fit lasso",
		zap.Int("train_set_size", trainSet.Count()),
		zap.Int("test_set_size", testSet.Count()),
		zap.Any("params", l.GetParams()),
		zap.Any("config", config))
	if trainSet.CountPositive() == 0 || trainSet.CountNegative() == 0 {
		log.Logger().Error("lasso requires both classes in the training set",
			zap.Int("n_positive", trainSet.CountPositive()),
			zap.Int("n_negative", trainSet.CountNegative()))
		return Score{}
	}
	if trainSet.Count() < l.nFolds {
		log.Logger().Error("not enough observations for cross validation",
			zap.Int("n_observations", trainSet.Count()),
			zap.Int("n_folds", l.nFolds))
		return Score{}
	}
	l.Init(trainSet)
	// Fit the full path once for the final coefficients
	fitStart := time.Now()
	scaler := NewScaler(trainSet.GetFeatures(), trainSet.CountFeatures())
	x := scaler.Transform(trainSet.GetFeatures())
	y := trainSet.GetLabels()
	lambdas := l.lambdaPath(x, y)
	_, span := progress.Start(ctx, "Lasso.Fit", l.nFolds+1)
	wPath, bPath := l.fitPath(x, y, lambdas)
	span.Add(1)
	fitTime := time.Since(fitStart)
	// Cross validate the path
	evalStart := time.Now()
	cvErrors := base.NewMatrix32(l.nFolds, len(lambdas))
	trainFolds, testFolds := trainSet.Folds(l.nFolds, l.GetRandomGenerator().Int63())
	_ = parallel.Parallel(ctx, l.nFolds, config.Jobs, func(_, foldId int) error {
		foldScaler := NewScaler(trainFolds[foldId].GetFeatures(), trainFolds[foldId].CountFeatures())
		foldX := foldScaler.Transform(trainFolds[foldId].GetFeatures())
		foldW, foldB := l.fitPath(foldX, trainFolds[foldId].GetLabels(), lambdas)
		heldX := foldScaler.Transform(testFolds[foldId].GetFeatures())
		heldY := testFolds[foldId].GetLabels()
		for k := range lambdas {
			var miss float32
			for i, row := range heldX {
				if (floats.Dot(foldW[k], row)+foldB[k] > 0) != (heldY[i] > 0) {
					miss++
				}
			}
			cvErrors[foldId][k] = miss / float32(len(heldX))
		}
		log.Logger().Debug(fmt.Sprintf("fit lasso fold %v/%v", foldId+1, l.nFolds),
			zap.Int("fold_train_size", trainFolds[foldId].Count()),
			zap.Int("fold_test_size", testFolds[foldId].Count()))
		span.Add(1)
		return nil
	})
	evalTime := time.Since(evalStart)
	span.End()
	// Choose the penalty with the least mean error. The path is descending so
	// on ties the sparser fit wins.
	meanErrors := make([]float32, len(lambdas))
	best := 0
	for k := range lambdas {
		for foldId := 0; foldId < l.nFolds; foldId++ {
			meanErrors[k] += cvErrors[foldId][k]
		}
		meanErrors[k] /= float32(l.nFolds)
		if meanErrors[k] < meanErrors[best] {
			best = k
		}
	}
	l.Lambda = lambdas[best]
	l.Coefficients = wPath[best]
	l.Intercept = bPath[best]
	l.Importance = make([]float32, len(l.Coefficients))
	for j, coefficient := range l.Coefficients {
		l.Importance[j] = math32.Abs(coefficient)
	}
	l.selectTopK(0)
	score := Score{
		Accuracy:    1 - meanErrors[best],
		CVError:     meanErrors[best],
		NumSelected: len(l.Selection),
	}
	if testSet.Count() > 0 {
		buffer := make([]float32, testSet.CountFeatures())
		posDecision, negDecision := splitDecisions(testSet, func(row []float32) float32 {
			scaler.TransformTo(row, buffer)
			return floats.Dot(l.Coefficients, buffer) + l.Intercept
		})
		score.Accuracy = Accuracy(posDecision, negDecision)
		score.AUC = AUC(posDecision, negDecision)
	}
	log.Logger().Info("fit lasso complete",
		zap.String("fit_time", fitTime.String()),
		zap.String("eval_time", evalTime.String()),
		zap.Float32("lambda", l.Lambda),
		zap.Float32("cv_error", score.CVError),
		zap.Int("n_selected", score.NumSelected))
	return score
}

// lambdaPath builds a geometric sequence of penalties from the smallest
// penalty that zeroes every coefficient down to one percent of it.
func (l *Lasso) lambdaPath(x [][]float32, y []float32) []float32 {
	p0 := floats.Mean(y)
	lambdaMax := float32(0)
	for j := 0; j < len(x[0]); j++ {
		var g float32
		for i := range x {
			g += (p0 - y[i]) * x[i][j]
		}
		lambdaMax = math32.Max(lambdaMax, math32.Abs(g/float32(len(x))))
	}
	if lambdaMax == 0 {
		lambdaMax = 1
	}
	count := l.nLambdas
	if count < 2 {
		count = 2
	}
	lambdas := make([]float32, count)
	ratio := math32.Pow(0.01, 1/float32(count-1))
	lambda := lambdaMax
	for k := range lambdas {
		lambdas[k] = lambda
		lambda *= ratio
	}
	return lambdas
}

// fitPath runs cyclic coordinate descent along the penalty sequence with warm
// starts. The logistic loss is minimized through a quadratic majorization, so
// each coordinate step is a soft thresholded Newton step with the curvature
// bounded by a quarter of the column norm. Between full sweeps only the
// active coordinates are updated.
func (l *Lasso) fitPath(x [][]float32, y []float32, lambdas []float32) (wPath [][]float32, bPath []float32) {
	n, p := len(x), len(x[0])
	hessian := make([]float32, p)
	for j := 0; j < p; j++ {
		var sum float32
		for i := 0; i < n; i++ {
			sum += x[i][j] * x[i][j]
		}
		hessian[j] = sum / float32(n) / 4
	}
	p0 := floats.Mean(y)
	w := make([]float32, p)
	b := math32.Log(p0 / (1 - p0))
	eta := base.RepeatFloat32s(n, b)
	wPath = base.NewMatrix32(len(lambdas), p)
	bPath = make([]float32, len(lambdas))
	for k, lambda := range lambdas {
		for epoch := 0; epoch < l.nEpochs; epoch++ {
			maxDelta := l.sweep(x, y, w, &b, eta, hessian, lambda, nil)
			active := make([]int, 0, p)
			for j := 0; j < p; j++ {
				if w[j] != 0 {
					active = append(active, j)
				}
			}
			for inner := 0; inner < l.nEpochs; inner++ {
				if l.sweep(x, y, w, &b, eta, hessian, lambda, active) < l.tol {
					break
				}
			}
			if maxDelta < l.tol {
				break
			}
		}
		copy(wPath[k], w)
		bPath[k] = b
	}
	return
}

// sweep updates the intercept and the given coordinates (all of them when nil)
// once, returning the largest update.
func (l *Lasso) sweep(x [][]float32, y []float32, w []float32, b *float32, eta, hessian []float32, lambda float32, active []int) float32 {
	n := float32(len(x))
	var g float32
	for i := range x {
		g += sigmoid(eta[i]) - y[i]
	}
	delta := -4 * g / n
	*b += delta
	floats.AddConst(eta, delta)
	maxDelta := math32.Abs(delta)
	update := func(j int) {
		if hessian[j] == 0 {
			return
		}
		g = 0
		for i := range x {
			g += (sigmoid(eta[i]) - y[i]) * x[i][j]
		}
		g /= n
		next := softThreshold(w[j]-g/hessian[j], lambda/hessian[j])
		if delta = next - w[j]; delta != 0 {
			w[j] = next
			for i := range x {
				eta[i] += delta * x[i][j]
			}
			maxDelta = math32.Max(maxDelta, math32.Abs(delta))
		}
	}
	if active == nil {
		for j := range w {
			update(j)
		}
	} else {
		for _, j := range active {
			update(j)
		}
	}
	return maxDelta
}

func sigmoid(x float32) float32 {
	return 1 / (1 + math32.Exp(-x))
}

func softThreshold(z, threshold float32) float32 {
	switch {
	case z > threshold:
		return z - threshold
	case z < -threshold:
		return z + threshold
	default:
		return 0
	}
}

// Marshal model into byte stream.
func (l *Lasso) Marshal(w io.Writer) error {
	if err := l.BaseSelector.Marshal(w); err != nil {
		return errors.Trace(err)
	}
	if err := encoding.WriteGob(w, l.Lambda); err != nil {
		return errors.Trace(err)
	}
	if err := encoding.WriteVector(w, l.Coefficients); err != nil {
		return errors.Trace(err)
	}
	if err := encoding.WriteGob(w, l.Intercept); err != nil {
		return errors.Trace(err)
	}
	return nil
}

// Unmarshal model from byte stream.
func (l *Lasso) Unmarshal(r io.Reader) error {
	if err := l.BaseSelector.Unmarshal(r); err != nil {
		return errors.Trace(err)
	}
	if err := encoding.ReadGob(r, &l.Lambda); err != nil {
		return errors.Trace(err)
	}
	var err error
	if l.Coefficients, err = encoding.ReadVector(r); err != nil {
		return errors.Trace(err)
	}
	if err := encoding.ReadGob(r, &l.Intercept); err != nil {
		return errors.Trace(err)
	}
	l.SetParams(l.Params)
	return nil
}

func (l *Lasso) Clear() {
	l.BaseSelector.Clear()
	l.Lambda = 0
	l.Coefficients = nil
	l.Intercept = 0
}
