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

	"github.com/ampscore/ampscore/dataset"
	"github.com/ampscore/ampscore/model"
	"github.com/c-bata/goptuna"
	"github.com/juju/errors"
	"golang.org/x/exp/maps"
)

type ModelCreator func() Selector

// SearchResult is the best selector found by a study.
type SearchResult struct {
	Type   string
	Params model.Params
	Score  Score
}

type ModelSearch struct {
	modelCreators map[string]ModelCreator
	modelTypes    []string
	trainSet      *dataset.Table
	testSet       *dataset.Table
	config        *FitConfig
	result        SearchResult
}

func NewModelSearch(models map[string]ModelCreator, trainSet, testSet *dataset.Table, config *FitConfig) *ModelSearch {
	return &ModelSearch{
		modelCreators: models,
		modelTypes:    maps.Keys(models),
		trainSet:      trainSet,
		testSet:       testSet,
		config:        config,
	}
}

func (ms *ModelSearch) Objective(trial goptuna.Trial) (float64, error) {
	if len(ms.modelCreators) == 0 {
		return 0, errors.New("no model to search")
	}
	modelType, err := trial.SuggestCategorical("Model", ms.modelTypes)
	if err != nil {
		return 0, errors.Trace(err)
	}
	m := ms.modelCreators[modelType]()
	m.SetParams(m.SuggestParams(trial))
	score := m.Fit(context.Background(), ms.trainSet, ms.testSet, ms.config)
	if score.Accuracy > ms.result.Score.Accuracy {
		ms.result = SearchResult{
			Type:   modelType,
			Params: m.GetParams(),
			Score:  score,
		}
	}
	return float64(score.Accuracy), nil
}

func (ms *ModelSearch) Result() SearchResult {
	return ms.result
}
