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
	"testing"
	"time"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ampscore/ampscore/common/encoding"
	"github.com/ampscore/ampscore/dataset"
	"github.com/ampscore/ampscore/model/selector"
)

func newTestPanel() *Panel {
	return &Panel{
		NumFeatures:  6,
		Features:     []int32{1, 3, 4},
		FeatureNames: []string{"feature_2", "feature_4", "feature_5"},
		Weights:      []float32{2, -1, 0.5},
		Calibration:  Calibration{MinRaw: -4, MaxRaw: 8, Cutpoint: 2},
		Diagnostics: []Diagnostic{
			{Selector: "lasso", Score: selector.Score{Accuracy: 0.9, NumSelected: 3}},
			{Selector: "forest", Score: selector.Score{Accuracy: 0.95, OOBError: 0.05, NumSelected: 3}},
			{Selector: "svm", Error: "fit svm failed: no ranking"},
		},
		Degraded:  false,
		Seed:      42,
		CreatedAt: time.Now().UTC(),
	}
}

func TestPanelScore(t *testing.T) {
	p := newTestPanel()
	features := []float32{9, 1, 9, 4, 2, 9}
	// 1*2 + 4*(-1) + 2*0.5
	assert.Equal(t, float32(-1), p.Score(features))
	// scoring is pure, repeated calls agree and the input stays intact
	assert.Equal(t, float32(-1), p.Score(features))
	assert.Equal(t, []float32{9, 1, 9, 4, 2, 9}, features)
	// raw -1 sits between MinRaw and the cutpoint
	assert.Equal(t, float32(0.25), p.ScoreNormalized(features))
}

func TestPanelScoreNamed(t *testing.T) {
	p := newTestPanel()
	score, err := p.ScoreNamed(map[string]float32{
		"feature_2": 1,
		"feature_4": 4,
		"feature_5": 2,
	})
	assert.NoError(t, err)
	assert.Equal(t, p.ScoreNormalized([]float32{0, 1, 0, 4, 2, 0}), score)

	// a missing feature is rejected
	_, err = p.ScoreNamed(map[string]float32{"feature_2": 1, "feature_4": 4})
	assert.True(t, errors.IsNotFound(err))
}

func TestPanelScoreAll(t *testing.T) {
	p := newTestPanel()
	table := dataset.Simulate(dataset.SimulatorConfig{
		PositiveSamples:       2,
		NegativeSamples:       2,
		ObservationsPerSample: 25,
		NumFeatures:           6,
		PositiveMean:          4,
		NegativeMean:          2,
		StdDev:                1,
		RandomState:           42,
	})
	scores := p.ScoreAll(context.Background(), table, 4)
	require.Len(t, scores, table.Count())
	for i, features := range table.GetFeatures() {
		assert.Equal(t, p.ScoreNormalized(features), scores[i])
	}
}

func TestPanelMarshal(t *testing.T) {
	p := newTestPanel()
	buf := bytes.NewBuffer(nil)
	require.NoError(t, p.Marshal(buf))
	decoded := &Panel{}
	require.NoError(t, decoded.Unmarshal(buf))
	assert.Equal(t, p, decoded)
}

func TestPanelUnmarshalBadHeader(t *testing.T) {
	buf := bytes.NewBuffer(nil)
	require.NoError(t, encoding.WriteString(buf, "BOGUS"))
	err := (&Panel{}).Unmarshal(buf)
	assert.True(t, errors.IsNotValid(err))
}

func TestPanelUnmarshalBadVersion(t *testing.T) {
	buf := bytes.NewBuffer(nil)
	require.NoError(t, encoding.WriteString(buf, panelMagic))
	require.NoError(t, encoding.WriteGob(buf, int32(99)))
	err := (&Panel{}).Unmarshal(buf)
	assert.True(t, errors.IsNotSupported(err))
}

func TestPanelInvalid(t *testing.T) {
	var nilPanel *Panel
	assert.True(t, nilPanel.Invalid())
	assert.True(t, (&Panel{}).Invalid())
	assert.True(t, (&Panel{Features: []int32{1}, Weights: []float32{1, 2}}).Invalid())
	assert.False(t, newTestPanel().Invalid())
}
