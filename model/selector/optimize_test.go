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
	"testing"

	"github.com/ampscore/ampscore/model"
	"github.com/c-bata/goptuna"
	"github.com/c-bata/goptuna/tpe"
	"github.com/stretchr/testify/assert"
)

func TestTPE(t *testing.T) {
	search := NewModelSearch(map[string]ModelCreator{
		"mock": func() Selector {
			return newMockSelectorForSearch()
		},
	}, nil, nil, nil)
	study, err := goptuna.CreateStudy("TestTPE",
		goptuna.StudyOptionDirection(goptuna.StudyDirectionMaximize),
		goptuna.StudyOptionSampler(tpe.NewSampler()))
	assert.NoError(t, err)
	err = study.Optimize(search.Objective, 10)
	assert.NoError(t, err)
	v, _ := study.GetBestValue()
	assert.Equal(t, float64(12), v)
	result := search.Result()
	assert.Equal(t, "mock", result.Type)
	assert.Equal(t, model.Params{
		model.NTrees:      float64(4),
		model.TopK:        float64(4),
		model.MinLeafSize: float64(4),
	}, result.Params)
	assert.Equal(t, Score{Accuracy: 12}, result.Score)
}
