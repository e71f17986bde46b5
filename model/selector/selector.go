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
	"reflect"
	"sort"

	"github.com/ampscore/ampscore/base/copier"
	"github.com/ampscore/ampscore/common/encoding"
	"github.com/ampscore/ampscore/dataset"
	"github.com/ampscore/ampscore/model"
	"github.com/c-bata/goptuna"
	"github.com/juju/errors"
	"go.uber.org/zap"
	"modernc.org/sortutil"
)

type Score struct {
	Accuracy          float32 // accuracy of the fitted classifier on the test set
	AUC               float32 // area under the ROC curve on the test set
	CVError           float32 // mean cross validation misclassification error
	OOBError          float32 // out-of-bag error (tree ensembles only)
	TruncatedAccuracy float32 // cross validation accuracy after truncating to the selection
	NumSelected       int
}

func (score Score) ZapFields() []zap.Field {
	return []zap.Field{
		zap.Float32("Accuracy", score.Accuracy),
		zap.Float32("AUC", score.AUC),
		zap.Float32("CVError", score.CVError),
		zap.Float32("OOBError", score.OOBError),
		zap.Float32("TruncatedAccuracy", score.TruncatedAccuracy),
		zap.Int("NumSelected", score.NumSelected),
	}
}

func (score Score) GetValue() float32 {
	return score.Accuracy
}

func (score Score) BetterThan(s Score) bool {
	return score.Accuracy > s.Accuracy
}

type FitConfig struct {
	Jobs    int
	Verbose int
}

func NewFitConfig() *FitConfig {
	return &FitConfig{
		Jobs:    1,
		Verbose: 10,
	}
}

func (config *FitConfig) SetVerbose(verbose int) *FitConfig {
	config.Verbose = verbose
	return config
}

func (config *FitConfig) SetJobs(jobs int) *FitConfig {
	config.Jobs = jobs
	return config
}

func (config *FitConfig) LoadDefaultIfNil() *FitConfig {
	if config == nil {
		return NewFitConfig()
	}
	return config
}

// Feature is a ranked feature with its importance weight.
type Feature struct {
	Index      int32
	Name       string
	Importance float32
}

// Ranking lists features by decreasing importance. Ties are broken by the
// feature index.
type Ranking []Feature

// Indices returns the feature indices in ranking order.
func (r Ranking) Indices() []int32 {
	indices := make([]int32, len(r))
	for i, feature := range r {
		indices[i] = feature.Index
	}
	return indices
}

type Selector interface {
	model.Model
	// Fit ranks features on the training observations and keeps a selection
	// of them. The test set is only used to report held-out metrics.
	Fit(ctx context.Context, trainSet, testSet *dataset.Table, config *FitConfig) Score
	// Ranking returns all features ordered by decreasing importance.
	Ranking() Ranking
	// Selected returns the indices of selected features in ascending order.
	Selected() []int32
	// SuggestParams suggests hyper-parameters for a trial.
	SuggestParams(trial goptuna.Trial) model.Params
	// Marshal model into byte stream.
	Marshal(w io.Writer) error
	// Unmarshal model from byte stream.
	Unmarshal(r io.Reader) error
}

type BaseSelector struct {
	model.BaseModel
	FeatureNames []string
	Importance   []float32
	Selection    []int32
}

func (s *BaseSelector) Init(trainSet *dataset.Table) {
	s.FeatureNames = trainSet.GetFeatureNames()
	s.Importance = nil
	s.Selection = nil
}

func (s *BaseSelector) Ranking() Ranking {
	ranking := make(Ranking, 0, len(s.Importance))
	for i, importance := range s.Importance {
		ranking = append(ranking, Feature{
			Index:      int32(i),
			Name:       s.FeatureNames[i],
			Importance: importance,
		})
	}
	sort.Slice(ranking, func(i, j int) bool {
		if ranking[i].Importance != ranking[j].Importance {
			return ranking[i].Importance > ranking[j].Importance
		}
		return ranking[i].Index < ranking[j].Index
	})
	return ranking
}

func (s *BaseSelector) Selected() []int32 {
	return s.Selection
}

// selectTopK keeps the topK features with positive importance. A topK of zero
// keeps every feature with positive importance.
func (s *BaseSelector) selectTopK(topK int) {
	ranking := s.Ranking()
	if topK > 0 && topK < len(ranking) {
		ranking = ranking[:topK]
	}
	selection := make([]int32, 0, len(ranking))
	for _, feature := range ranking {
		if feature.Importance > 0 {
			selection = append(selection, feature.Index)
		}
	}
	sort.Sort(sortutil.Int32Slice(selection))
	s.Selection = selection
}

// Marshal model into byte stream.
func (s *BaseSelector) Marshal(w io.Writer) error {
	if err := encoding.WriteGob(w, s.Params); err != nil {
		return errors.Trace(err)
	}
	if err := encoding.WriteGob(w, s.FeatureNames); err != nil {
		return errors.Trace(err)
	}
	if err := encoding.WriteVector(w, s.Importance); err != nil {
		return errors.Trace(err)
	}
	if err := encoding.WriteGob(w, s.Selection); err != nil {
		return errors.Trace(err)
	}
	return nil
}

// Unmarshal model from byte stream.
func (s *BaseSelector) Unmarshal(r io.Reader) error {
	if err := encoding.ReadGob(r, &s.Params); err != nil {
		return errors.Trace(err)
	}
	if err := encoding.ReadGob(r, &s.FeatureNames); err != nil {
		return errors.Trace(err)
	}
	var err error
	if s.Importance, err = encoding.ReadVector(r); err != nil {
		return errors.Trace(err)
	}
	if err := encoding.ReadGob(r, &s.Selection); err != nil {
		return errors.Trace(err)
	}
	return nil
}

func (s *BaseSelector) Clear() {
	s.FeatureNames = nil
	s.Importance = nil
	s.Selection = nil
}

func (s *BaseSelector) Invalid() bool {
	return s == nil || s.Importance == nil
}

// FitError wraps the failure of a single selector so that callers can carry
// on with the remaining selectors.
type FitError struct {
	Name string
	Err  error
}

func (e *FitError) Error() string {
	return fmt.Sprintf("fit %v failed: %v", e.Name, e.Err)
}

func (e *FitError) Unwrap() error {
	return e.Err
}

// Clone a selector with deep copy.
func Clone(s Selector) Selector {
	var copied Selector
	if err := copier.Copy(&copied, s); err != nil {
		panic(err)
	} else {
		copied.SetParams(copied.GetParams())
		return copied
	}
}

func GetSelectorName(s Selector) string {
	switch s.(type) {
	case *Lasso:
		return "lasso"
	case *Forest:
		return "forest"
	case *SVM:
		return "svm"
	default:
		return reflect.TypeOf(s).String()
	}
}

// NewModel creates a selector from its name.
func NewModel(name string, params model.Params) (Selector, error) {
	switch name {
	case "lasso":
		return NewLasso(params), nil
	case "forest":
		return NewForest(params), nil
	case "svm":
		return NewSVM(params), nil
	}
	return nil, errors.NotFoundf("selector %v", name)
}

func MarshalModel(w io.Writer, s Selector) error {
	if err := encoding.WriteString(w, GetSelectorName(s)); err != nil {
		return errors.Trace(err)
	}
	if err := s.Marshal(w); err != nil {
		return errors.Trace(err)
	}
	return nil
}

func UnmarshalModel(r io.Reader) (Selector, error) {
	name, err := encoding.ReadString(r)
	if err != nil {
		return nil, errors.Trace(err)
	}
	switch name {
	case "lasso":
		var lasso Lasso
		if err := lasso.Unmarshal(r); err != nil {
			return nil, errors.Trace(err)
		}
		return &lasso, nil
	case "forest":
		var forest Forest
		if err := forest.Unmarshal(r); err != nil {
			return nil, errors.Trace(err)
		}
		return &forest, nil
	case "svm":
		var svm SVM
		if err := svm.Unmarshal(r); err != nil {
			return nil, errors.Trace(err)
		}
		return &svm, nil
	}
	return nil, fmt.Errorf("unknown selector %v", name)
}
