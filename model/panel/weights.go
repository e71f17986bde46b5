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
	"math"
	"time"

	"github.com/ampscore/ampscore/base/log"
	"github.com/ampscore/ampscore/dataset"
	"github.com/juju/errors"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
)

const (
	irlsMaxIterations = 50
	irlsTolerance     = 1e-8
	// Coefficient magnitude on the standardized scale beyond which the
	// classes are treated as perfectly separated.
	separationBound = 30
)

// SeparationError reports a logistic fit on perfectly separable classes,
// where the maximum likelihood coefficients are unbounded.
type SeparationError struct {
	Feature     int32 // diverged feature, -1 when the working weights collapsed
	Name        string
	Coefficient float32
}

func (e *SeparationError) Error() string {
	if e.Feature < 0 {
		return "perfect separation: working weight matrix is not positive definite"
	}
	return fmt.Sprintf("perfect separation: coefficient of %v is unbounded (%v)", e.Name, e.Coefficient)
}

// FitWeights fits a maximum likelihood binomial logistic regression on the
// selected feature columns by iteratively reweighted least squares and
// returns one signed weight per feature on the raw feature scale. The
// intercept is fitted and discarded, only feature contributions matter for
// scoring. Columns are standardized internally so divergence is detected on
// a scale independent of feature units.
func FitWeights(trainSet *dataset.Table, features []int32, names []string) ([]float32, error) {
	n := trainSet.Count()
	p := len(features)
	if p == 0 {
		return nil, errors.New("no features to weight")
	}
	if n == 0 {
		return nil, errors.New("empty training set")
	}
	log.Logger().Info("fit panel weights",
		zap.Int("n_observations", n),
		zap.Int("n_features", p))
	fitStart := time.Now()
	x := trainSet.GetFeatures()
	labels := trainSet.GetLabels()
	mean := make([]float64, p)
	scale := make([]float64, p)
	for j, f := range features {
		var sum float64
		for i := 0; i < n; i++ {
			sum += float64(x[i][f])
		}
		mean[j] = sum / float64(n)
		var sq float64
		for i := 0; i < n; i++ {
			diff := float64(x[i][f]) - mean[j]
			sq += diff * diff
		}
		scale[j] = math.Sqrt(sq / float64(n))
		if scale[j] == 0 {
			scale[j] = 1
		}
	}
	design := mat.NewDense(n, p+1, nil)
	y := make([]float64, n)
	var positive float64
	for i := 0; i < n; i++ {
		design.Set(i, 0, 1)
		for j, f := range features {
			design.Set(i, j+1, (float64(x[i][f])-mean[j])/scale[j])
		}
		if labels[i] > 0 {
			y[i] = 1
			positive++
		}
	}
	if positive == 0 || positive == float64(n) {
		return nil, errors.New("logistic regression requires both classes")
	}
	beta := mat.NewVecDense(p+1, nil)
	beta.SetVec(0, math.Log(positive/(float64(n)-positive)))
	scaled := mat.NewDense(n, p+1, nil)
	response := mat.NewVecDense(n, nil)
	eta := mat.NewVecDense(n, nil)
	iterations := 0
	for iterations < irlsMaxIterations {
		iterations++
		eta.MulVec(design, beta)
		for i := 0; i < n; i++ {
			mu := 1 / (1 + math.Exp(-eta.AtVec(i)))
			mu = math.Min(math.Max(mu, 1e-10), 1-1e-10)
			weight := mu * (1 - mu)
			root := math.Sqrt(weight)
			for j := 0; j <= p; j++ {
				scaled.Set(i, j, root*design.At(i, j))
			}
			response.SetVec(i, root*(eta.AtVec(i)+(y[i]-mu)/weight))
		}
		var normal mat.SymDense
		normal.SymOuterK(1, scaled.T())
		var chol mat.Cholesky
		if !chol.Factorize(&normal) {
			log.Logger().Error("working weight matrix is not positive definite",
				zap.Int("iteration", iterations),
				zap.Int("n_features", p))
			return nil, &SeparationError{Feature: -1}
		}
		var rhs mat.VecDense
		rhs.MulVec(scaled.T(), response)
		var next mat.VecDense
		if err := chol.SolveVecTo(&next, &rhs); err != nil {
			return nil, errors.Trace(err)
		}
		var delta float64
		for j := 0; j <= p; j++ {
			delta = math.Max(delta, math.Abs(next.AtVec(j)-beta.AtVec(j)))
		}
		beta.CopyVec(&next)
		for j := 1; j <= p; j++ {
			if math.Abs(beta.AtVec(j)) > separationBound {
				log.Logger().Error("logistic coefficient diverged",
					zap.String("feature", names[j-1]),
					zap.Float64("coefficient", beta.AtVec(j)),
					zap.Int("iteration", iterations))
				return nil, &SeparationError{
					Feature:     features[j-1],
					Name:        names[j-1],
					Coefficient: float32(beta.AtVec(j)),
				}
			}
		}
		if delta < irlsTolerance {
			break
		}
	}
	weights := make([]float32, p)
	for j := range weights {
		weights[j] = float32(beta.AtVec(j+1) / scale[j])
	}
	log.Logger().Info("fit panel weights complete",
		zap.Int("iterations", iterations),
		zap.String("fit_time", time.Since(fitStart).String()))
	return weights, nil
}
