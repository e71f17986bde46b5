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

	"github.com/ampscore/ampscore/common/floats"
	"github.com/ampscore/ampscore/model"
	"github.com/stretchr/testify/assert"
)

func TestForest(t *testing.T) {
	trainSet, testSet := newClassificationSplit(t)
	forest := NewForest(model.Params{
		model.NTrees: 100,
		model.TopK:   10,
	})
	score := forest.Fit(context.Background(), trainSet, testSet, newFitConfig())
	assert.Greater(t, score.Accuracy, float32(testAccuracy))
	assert.Less(t, score.OOBError, float32(0.1))
	assert.Equal(t, forest.OOBError, score.OOBError)
	assert.Equal(t, 10, score.NumSelected)
	assert.Len(t, forest.Selected(), 10)
	assertAscending(t, forest.Selected())
	// the class shift lives in the informative block
	assert.Greater(t, countInformative(forest.Selected()), 5)
	assert.Less(t, forest.Ranking()[0].Index, int32(testInformative))
	assert.InDelta(t, 1, floats.Sum(forest.Importance), 1e-3)
	assert.False(t, forest.Invalid())

	// identical seeds give identical fits
	clone := NewForest(model.Params{
		model.NTrees: 100,
		model.TopK:   10,
	})
	cloneScore := clone.Fit(context.Background(), trainSet, testSet, newFitConfig())
	assert.Equal(t, score, cloneScore)
	assert.Equal(t, forest.Selected(), clone.Selected())
	assert.Equal(t, forest.Importance, clone.Importance)
	assert.Equal(t, forest.OOBError, clone.OOBError)

	// test marshal and unmarshal
	buf := bytes.NewBuffer(nil)
	err := MarshalModel(buf, forest)
	assert.NoError(t, err)
	tmp, err := UnmarshalModel(buf)
	assert.NoError(t, err)
	assert.Equal(t, "forest", GetSelectorName(tmp))
	forestCopy := tmp.(*Forest)
	assert.Equal(t, forest.GetParams(), forestCopy.GetParams())
	assert.Equal(t, forest.Selected(), forestCopy.Selected())
	assert.Equal(t, forest.Importance, forestCopy.Importance)
	assert.Equal(t, forest.OOBError, forestCopy.OOBError)
	assert.False(t, forestCopy.Invalid())

	// test clear
	forest.Clear()
	assert.True(t, forest.Invalid())
}

func TestForestSingleClass(t *testing.T) {
	trainSet := newSingleClassTable()
	forest := NewForest(nil)
	score := forest.Fit(context.Background(), trainSet, nil, newFitConfig())
	assert.Zero(t, score)
	assert.True(t, forest.Invalid())
}
