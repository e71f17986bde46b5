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
	"testing"

	"github.com/ampscore/ampscore/dataset"
	"github.com/ampscore/ampscore/model"
	"github.com/c-bata/goptuna"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
)

type mockSelectorForSearch struct {
	model.BaseModel
}

func newMockSelectorForSearch() *mockSelectorForSearch {
	m := new(mockSelectorForSearch)
	m.SetParams(nil)
	return m
}

func (m *mockSelectorForSearch) Ranking() Ranking { panic("don't call me") }

func (m *mockSelectorForSearch) Selected() []int32 { panic("don't call me") }

func (m *mockSelectorForSearch) Marshal(_ io.Writer) error { panic("don't call me") }

func (m *mockSelectorForSearch) Unmarshal(_ io.Reader) error { panic("don't call me") }

func (m *mockSelectorForSearch) Invalid() bool { return false }

func (m *mockSelectorForSearch) Clear() {}

func (m *mockSelectorForSearch) Fit(_ context.Context, _, _ *dataset.Table, _ *FitConfig) Score {
	score := float32(0)
	score += m.Params.GetFloat32(model.NTrees, 0.0)
	score += m.Params.GetFloat32(model.TopK, 0.0)
	score += m.Params.GetFloat32(model.MinLeafSize, 0.0)
	return Score{Accuracy: score}
}

func (m *mockSelectorForSearch) GetParamsGrid(_ bool) model.ParamsGrid {
	return model.ParamsGrid{
		model.NTrees:      []interface{}{1, 2, 3, 4},
		model.TopK:        []interface{}{4, 3, 2, 1},
		model.MinLeafSize: []interface{}{4, 4, 4, 4},
	}
}

func (m *mockSelectorForSearch) SuggestParams(trial goptuna.Trial) model.Params {
	return model.Params{
		model.NTrees:      lo.Must(trial.SuggestDiscreteFloat(string(model.NTrees), 1, 4, 1)),
		model.TopK:        lo.Must(trial.SuggestDiscreteFloat(string(model.TopK), 1, 4, 1)),
		model.MinLeafSize: lo.Must(trial.SuggestDiscreteFloat(string(model.MinLeafSize), 4, 4, 1)),
	}
}

func TestGridSearchCV(t *testing.T) {
	m := newMockSelectorForSearch()
	r := GridSearchCV(context.Background(), m, nil, nil, m.GetParamsGrid(false), 0, newFitConfig())
	assert.Len(t, r.Scores, 64)
	assert.Equal(t, float32(12), r.BestScore.Accuracy)
	assert.Equal(t, model.Params{
		model.NTrees:      4,
		model.TopK:        4,
		model.MinLeafSize: 4,
	}, r.BestParams)
	assert.Equal(t, r.BestParams, r.BestModel.GetParams())
}

func TestRandomSearchCV(t *testing.T) {
	m := newMockSelectorForSearch()
	// the trial budget covers the grid so the search is exhaustive
	r := RandomSearchCV(context.Background(), m, nil, nil, m.GetParamsGrid(false), 64, 0, newFitConfig())
	assert.Equal(t, float32(12), r.BestScore.Accuracy)
	assert.Equal(t, model.Params{
		model.NTrees:      4,
		model.TopK:        4,
		model.MinLeafSize: 4,
	}, r.BestParams)
}

func TestModelSearcher(t *testing.T) {
	trainSet, testSet := newClassificationSplit(t)
	searcher := NewModelSearcher(64, false)
	searcher.models = []Selector{newMockSelectorForSearch()}
	err := searcher.Fit(context.Background(), trainSet, testSet, newFitConfig())
	assert.NoError(t, err)
	name, m, score := searcher.GetBestModel()
	assert.Equal(t, "*selector.mockSelectorForSearch", name)
	assert.Equal(t, float32(12), score.Accuracy)
	assert.Equal(t, model.Params{
		model.NTrees:      4,
		model.TopK:        4,
		model.MinLeafSize: 4,
	}, m.GetParams())
}
