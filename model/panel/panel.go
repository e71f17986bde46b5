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

// Package panel fits, calibrates and applies aggregate marker panels. A panel
// is the trained artifact of the pipeline: the consensus features, one signed
// weight per feature and the calibration anchors that map raw scores onto the
// unit range.
package panel

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/ampscore/ampscore/base/log"
	"github.com/ampscore/ampscore/common/encoding"
	"github.com/ampscore/ampscore/common/parallel"
	"github.com/ampscore/ampscore/dataset"
	"github.com/ampscore/ampscore/model/selector"
	"github.com/juju/errors"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

const (
	panelMagic   = "AMPS"
	panelVersion = int32(1)
)

// Calibration anchors the piecewise linear normalization: the cutpoint maps
// to 0.5 and the training extrema map to 0 and 1.
type Calibration struct {
	MinRaw   float32
	MaxRaw   float32
	Cutpoint float32
}

// Diagnostic is the reported outcome of a single selector fit.
type Diagnostic struct {
	Selector string
	Score    selector.Score
	Error    string
}

// Panel is an immutable trained aggregate marker panel.
type Panel struct {
	NumFeatures  int      // width of the feature vectors the panel scores
	Features     []int32  // consensus feature indices in ascending order
	FeatureNames []string // names of the consensus features
	Weights      []float32
	Calibration  Calibration
	Diagnostics  []Diagnostic
	Degraded     bool // fewer than two selectors produced a usable selection
	Seed         int64
	CreatedAt    time.Time
}

// Score computes the raw score of a full-width feature vector, the weighted
// sum over the consensus features. Pure function, safe to call concurrently.
func (p *Panel) Score(features []float32) float32 {
	var score float32
	for i, j := range p.Features {
		score += features[j] * p.Weights[i]
	}
	return score
}

// ScoreNormalized computes the calibrated score of a full-width feature
// vector. Scores of out-of-distribution vectors fall outside [0,1].
func (p *Panel) ScoreNormalized(features []float32) float32 {
	return p.Calibration.Normalize(p.Score(features))
}

// ScoreNamed computes the calibrated score of an observation keyed by
// feature name. Every consensus feature must be present.
func (p *Panel) ScoreNamed(values map[string]float32) (float32, error) {
	var score float32
	for i, name := range p.FeatureNames {
		value, exist := values[name]
		if !exist {
			return 0, errors.NotFoundf("feature %q", name)
		}
		score += value * p.Weights[i]
	}
	return p.Calibration.Normalize(score), nil
}

// ScoreAll computes normalized scores for every observation in the table.
func (p *Panel) ScoreAll(ctx context.Context, table *dataset.Table, jobs int) []float32 {
	scores := make([]float32, table.Count())
	scored := atomic.NewInt64(0)
	x := table.GetFeatures()
	_ = parallel.For(ctx, table.Count(), jobs, func(i int) {
		scores[i] = p.ScoreNormalized(x[i])
		scored.Inc()
	})
	log.Logger().Debug("scored observations",
		zap.Int64("n_scored", scored.Load()),
		zap.Int("n_features", len(p.Features)))
	return scores
}

func (p *Panel) Invalid() bool {
	return p == nil || len(p.Features) == 0 || len(p.Weights) != len(p.Features)
}

// Marshal panel into byte stream.
func (p *Panel) Marshal(w io.Writer) error {
	if err := encoding.WriteString(w, panelMagic); err != nil {
		return errors.Trace(err)
	}
	if err := encoding.WriteGob(w, panelVersion); err != nil {
		return errors.Trace(err)
	}
	if err := encoding.WriteGob(w, p.NumFeatures); err != nil {
		return errors.Trace(err)
	}
	if err := encoding.WriteGob(w, p.Features); err != nil {
		return errors.Trace(err)
	}
	if err := encoding.WriteGob(w, p.FeatureNames); err != nil {
		return errors.Trace(err)
	}
	if err := encoding.WriteVector(w, p.Weights); err != nil {
		return errors.Trace(err)
	}
	if err := encoding.WriteGob(w, p.Calibration); err != nil {
		return errors.Trace(err)
	}
	if err := encoding.WriteGob(w, p.Diagnostics); err != nil {
		return errors.Trace(err)
	}
	if err := encoding.WriteGob(w, p.Degraded); err != nil {
		return errors.Trace(err)
	}
	if err := encoding.WriteGob(w, p.Seed); err != nil {
		return errors.Trace(err)
	}
	if err := encoding.WriteGob(w, p.CreatedAt); err != nil {
		return errors.Trace(err)
	}
	return nil
}

// Unmarshal panel from byte stream.
func (p *Panel) Unmarshal(r io.Reader) error {
	magic, err := encoding.ReadString(r)
	if err != nil {
		return errors.Trace(err)
	}
	if magic != panelMagic {
		return errors.NotValidf("panel header %q", magic)
	}
	var version int32
	if err := encoding.ReadGob(r, &version); err != nil {
		return errors.Trace(err)
	}
	if version != panelVersion {
		return errors.NotSupportedf("panel version %d", version)
	}
	if err := encoding.ReadGob(r, &p.NumFeatures); err != nil {
		return errors.Trace(err)
	}
	if err := encoding.ReadGob(r, &p.Features); err != nil {
		return errors.Trace(err)
	}
	if err := encoding.ReadGob(r, &p.FeatureNames); err != nil {
		return errors.Trace(err)
	}
	if p.Weights, err = encoding.ReadVector(r); err != nil {
		return errors.Trace(err)
	}
	if err := encoding.ReadGob(r, &p.Calibration); err != nil {
		return errors.Trace(err)
	}
	if err := encoding.ReadGob(r, &p.Diagnostics); err != nil {
		return errors.Trace(err)
	}
	if err := encoding.ReadGob(r, &p.Degraded); err != nil {
		return errors.Trace(err)
	}
	if err := encoding.ReadGob(r, &p.Seed); err != nil {
		return errors.Trace(err)
	}
	if err := encoding.ReadGob(r, &p.CreatedAt); err != nil {
		return errors.Trace(err)
	}
	return nil
}

func (p *Panel) String() string {
	return fmt.Sprintf("Panel(features=%d, cutpoint=%v, degraded=%v)",
		len(p.Features), p.Calibration.Cutpoint, p.Degraded)
}
