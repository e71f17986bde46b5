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
	"bytes"
	"context"
	"testing"

	"github.com/ampscore/ampscore/model"
	"github.com/stretchr/testify/assert"
)

func TestLasso(t *testing.T) {
	trainSet, testSet := newClassificationSplit(t)
	lasso := NewLasso(nil)
	score := lasso.Fit(context.Background(), trainSet, testSet, newFitConfig())
	assert.Greater(t, score.Accuracy, float32(testAccuracy))
	assert.Equal(t, len(lasso.Selected()), score.NumSelected)
	assert.NotEmpty(t, lasso.Selected())
	assertAscending(t, lasso.Selected())
	// the class shift lives in the informative block
	assert.Greater(t, countInformative(lasso.Selected()), len(lasso.Selected())/2)
	assert.Less(t, lasso.Ranking()[0].Index, int32(testInformative))
	assert.False(t, lasso.Invalid())

	// identical seeds give identical fits
	clone := NewLasso(nil)
	cloneScore := clone.Fit(context.Background(), trainSet, testSet, newFitConfig())
	assert.Equal(t, score, cloneScore)
	assert.Equal(t, lasso.Selected(), clone.Selected())
	assert.Equal(t, lasso.Coefficients, clone.Coefficients)
	assert.Equal(t, lasso.Lambda, clone.Lambda)

	// test marshal and unmarshal
	buf := bytes.NewBuffer(nil)
	err := MarshalModel(buf, lasso)
	assert.NoError(t, err)
	tmp, err := UnmarshalModel(buf)
	assert.NoError(t, err)
	assert.Equal(t, "lasso", GetSelectorName(tmp))
	lassoCopy := tmp.(*Lasso)
	assert.Equal(t, lasso.GetParams(), lassoCopy.GetParams())
	assert.Equal(t, lasso.Selected(), lassoCopy.Selected())
	assert.Equal(t, lasso.Importance, lassoCopy.Importance)
	assert.Equal(t, lasso.Lambda, lassoCopy.Lambda)
	assert.Equal(t, lasso.Coefficients, lassoCopy.Coefficients)
	assert.Equal(t, lasso.Intercept, lassoCopy.Intercept)
	assert.False(t, lassoCopy.Invalid())

	// test clear
	lasso.Clear()
	assert.True(t, lasso.Invalid())
}

func TestLassoSingleClass(t *testing.T) {
	trainSet := newSingleClassTable()
	lasso := NewLasso(nil)
	score := lasso.Fit(context.Background(), trainSet, nil, newFitConfig())
	assert.Zero(t, score)
	assert.True(t, lasso.Invalid())
}

func TestLassoTooFewObservations(t *testing.T) {
	trainSet, _ := newClassificationSplit(t)
	lasso := NewLasso(model.Params{model.NFolds: trainSet.Count() + 1})
	score := lasso.Fit(context.Background(), trainSet, nil, newFitConfig())
	assert.Zero(t, score)
	assert.True(t, lasso.Invalid())
}
