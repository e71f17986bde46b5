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
	"sort"
	"time"

	"github.com/ampscore/ampscore/base"
	"github.com/ampscore/ampscore/base/log"
	"github.com/ampscore/ampscore/base/progress"
	"github.com/ampscore/ampscore/common/encoding"
	"github.com/ampscore/ampscore/common/floats"
	"github.com/ampscore/ampscore/common/parallel"
	"github.com/ampscore/ampscore/dataset"
	"github.com/ampscore/ampscore/model"
	"github.com/bits-and-blooms/bitset"
	"github.com/c-bata/goptuna"
	"github.com/chewxy/math32"
	"github.com/juju/errors"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// Forest selects features with a bagged ensemble of classification trees.
// Each tree is grown on a bootstrap resample; feature importance is the
// normalized sum of Gini impurity decreases over every split using the
// feature. Observations left out of a resample vote on the out-of-bag error,
// an estimate of generalization that needs no held-out set. The topK features
// by importance form the selection.
//
// Hyper-parameters:
//
//	NTrees      - The number of trees. Default is 1000.
//	MaxDepth    - The maximum tree depth, 0 for unlimited. Default is 0.
//	MinLeafSize - The minimum number of observations per leaf. Default is 1.
//	MaxFeatures - The number of features probed per split, 0 for the square
//	              root of the feature count. Default is 0.
//	TopK        - The selection size. Default is 100.
type Forest struct {
	BaseSelector
	// Hyper parameters
	nTrees      int
	maxDepth    int
	minLeafSize int
	maxFeatures int
	topK        int
	// Learned parameters
	OOBError float32
}

// NewForest creates an ensemble tree selector.
func NewForest(params model.Params) *Forest {
	forest := new(Forest)
	forest.SetParams(params)
	return forest
}

// SetParams sets hyper-parameters of the ensemble tree selector.
func (f *Forest) SetParams(params model.Params) {
	f.BaseSelector.SetParams(params)
	// Setup hyper-parameters
	f.nTrees = f.Params.GetInt(model.NTrees, 1000)
	f.maxDepth = f.Params.GetInt(model.MaxDepth, 0)
	f.minLeafSize = f.Params.GetInt(model.MinLeafSize, 1)
	f.maxFeatures = f.Params.GetInt(model.MaxFeatures, 0)
	f.topK = f.Params.GetInt(model.TopK, 100)
}

func (f *Forest) GetParamsGrid(withSize bool) model.ParamsGrid {
	return model.ParamsGrid{
		model.NTrees:      lo.If(withSize, []interface{}{100, 500, 1000}).Else([]interface{}{1000}),
		model.MaxDepth:    []interface{}{0, 8, 16},
		model.MinLeafSize: []interface{}{1, 5, 10},
		model.TopK:        []interface{}{50, 100, 200},
	}
}

func (f *Forest) SuggestParams(trial goptuna.Trial) model.Params {
	return model.Params{
		model.NTrees:      lo.Must(trial.SuggestInt(string(model.NTrees), 100, 1000)),
		model.MaxDepth:    lo.Must(trial.SuggestInt(string(model.MaxDepth), 0, 16)),
		model.MinLeafSize: lo.Must(trial.SuggestInt(string(model.MinLeafSize), 1, 10)),
		model.TopK:        lo.Must(trial.SuggestInt(string(model.TopK), 50, 200)),
	}
}

// Fit the ensemble tree selector. Its task complexity is O(f.nTrees).
func (f *Forest) Fit(ctx context.Context, trainSet, testSet *dataset.Table, config *FitConfig) Score {
	config = config.LoadDefaultIfNil()
	log.Logger().Info("fit forest",
		zap.Int("train_set_size", trainSet.Count()),
		zap.Int("test_set_size", testSet.Count()),
		zap.Any("params", f.GetParams()),
		zap.Any("config", config))
	if trainSet.CountPositive() == 0 || trainSet.CountNegative() == 0 {
		log.Logger().Error("forest requires both classes in the training set",
			zap.Int("n_positive", trainSet.CountPositive()),
			zap.Int("n_negative", trainSet.CountNegative()))
		return Score{}
	}
	f.Init(trainSet)
	x := trainSet.GetFeatures()
	y := trainSet.GetLabels()
	n := trainSet.Count()
	p := trainSet.CountFeatures()
	mtry := f.maxFeatures
	if mtry <= 0 {
		mtry = int(math32.Sqrt(float32(p)))
	}
	if mtry < 1 {
		mtry = 1
	} else if mtry > p {
		mtry = p
	}
	// Per tree random generators keep resamples independent of scheduling
	rngs := make([]base.RandomGenerator, f.nTrees)
	for i := range rngs {
		rngs[i] = base.NewRandomGenerator(f.GetRandomGenerator().Int63())
	}
	// Importance gains are accumulated per tree and merged in tree order, so
	// the merged sum does not depend on scheduling. Votes are integer counts
	// and can share per worker buffers.
	importances := base.NewMatrix32(f.nTrees, p)
	oobPositive := base.NewMatrix32(config.Jobs, n)
	oobNegative := base.NewMatrix32(config.Jobs, n)
	var testPositive, testNegative [][]float32
	if testSet.Count() > 0 {
		testPositive = base.NewMatrix32(config.Jobs, testSet.Count())
		testNegative = base.NewMatrix32(config.Jobs, testSet.Count())
	}
	fitStart := time.Now()
	_, span := progress.Start(ctx, "Forest.Fit", f.nTrees)
	_ = parallel.Parallel(ctx, f.nTrees, config.Jobs, func(workerId, treeId int) error {
		rng := rngs[treeId]
		inBag := bitset.New(uint(n))
		indices := make([]int, n)
		for i := range indices {
			indices[i] = rng.Intn(n)
			inBag.Set(uint(indices[i]))
		}
		builder := &treeBuilder{
			x:           x,
			y:           y,
			maxDepth:    f.maxDepth,
			minLeafSize: f.minLeafSize,
			mtry:        mtry,
			rng:         rng,
			importance:  importances[treeId],
			total:       float32(n),
		}
		root := builder.build(indices, 1)
		// Out-of-bag votes
		for i := 0; i < n; i++ {
			if !inBag.Test(uint(i)) {
				if root.predict(x[i]) > 0 {
					oobPositive[workerId][i]++
				} else {
					oobNegative[workerId][i]++
				}
			}
		}
		// Test set votes
		if testPositive != nil {
			for i, row := range testSet.GetFeatures() {
				if root.predict(row) > 0 {
					testPositive[workerId][i]++
				} else {
					testNegative[workerId][i]++
				}
			}
		}
		span.Add(1)
		return nil
	})
	span.End()
	fitTime := time.Since(fitStart)
	// Merge importance
	f.Importance = make([]float32, p)
	for treeId := 0; treeId < f.nTrees; treeId++ {
		floats.Add(f.Importance, importances[treeId])
	}
	if sum := floats.Sum(f.Importance); sum > 0 {
		floats.MulConst(f.Importance, 1/sum)
	}
	// Out-of-bag error
	var voted, miss float32
	for i := 0; i < n; i++ {
		var pos, neg float32
		for workerId := 0; workerId < config.Jobs; workerId++ {
			pos += oobPositive[workerId][i]
			neg += oobNegative[workerId][i]
		}
		if pos+neg > 0 {
			voted++
			if (pos > neg) != (y[i] > 0) {
				miss++
			}
		}
	}
	if voted > 0 {
		f.OOBError = miss / voted
	} else {
		f.OOBError = 0
		log.Logger().Warn("no out-of-bag observations", zap.Int("n_trees", f.nTrees))
	}
	f.selectTopK(f.topK)
	score := Score{
		Accuracy:    1 - f.OOBError,
		OOBError:    f.OOBError,
		NumSelected: len(f.Selection),
	}
	if testPositive != nil {
		var posDecision, negDecision []float32
		for i := 0; i < testSet.Count(); i++ {
			var pos, neg float32
			for workerId := 0; workerId < config.Jobs; workerId++ {
				pos += testPositive[workerId][i]
				neg += testNegative[workerId][i]
			}
			if testSet.GetLabels()[i] > 0 {
				posDecision = append(posDecision, pos-neg)
			} else {
				negDecision = append(negDecision, pos-neg)
			}
		}
		score.Accuracy = Accuracy(posDecision, negDecision)
		score.AUC = AUC(posDecision, negDecision)
	}
	log.Logger().Info("fit forest complete",
		zap.String("fit_time", fitTime.String()),
		zap.Float32("oob_error", f.OOBError),
		zap.Int("n_selected", score.NumSelected))
	return score
}

// Marshal model into byte stream.
func (f *Forest) Marshal(w io.Writer) error {
	if err := f.BaseSelector.Marshal(w); err != nil {
		return errors.Trace(err)
	}
	if err := encoding.WriteGob(w, f.OOBError); err != nil {
		return errors.Trace(err)
	}
	return nil
}

// Unmarshal model from byte stream.
func (f *Forest) Unmarshal(r io.Reader) error {
	if err := f.BaseSelector.Unmarshal(r); err != nil {
		return errors.Trace(err)
	}
	if err := encoding.ReadGob(r, &f.OOBError); err != nil {
		return errors.Trace(err)
	}
	f.SetParams(f.Params)
	return nil
}

func (f *Forest) Clear() {
	f.BaseSelector.Clear()
	f.OOBError = 0
}

// treeNode is a binary decision tree node. Leaves have a nil left child.
type treeNode struct {
	feature    int32
	threshold  float32
	left       *treeNode
	right      *treeNode
	prediction float32
}

func (node *treeNode) predict(row []float32) float32 {
	for node.left != nil {
		if row[node.feature] < node.threshold {
			node = node.left
		} else {
			node = node.right
		}
	}
	return node.prediction
}

// treeBuilder grows a single classification tree on a bootstrap resample and
// accumulates the weighted impurity decrease of every split into importance.
type treeBuilder struct {
	x           [][]float32
	y           []float32
	maxDepth    int
	minLeafSize int
	mtry        int
	rng         base.RandomGenerator
	importance  []float32
	total       float32
}

func (b *treeBuilder) build(indices []int, depth int) *treeNode {
	var positive float32
	for _, index := range indices {
		positive += b.y[index]
	}
	node := &treeNode{}
	if positive*2 > float32(len(indices)) {
		node.prediction = 1
	}
	// stop on purity, depth or node size
	if positive == 0 || positive == float32(len(indices)) ||
		(b.maxDepth > 0 && depth > b.maxDepth) ||
		len(indices) < 2*b.minLeafSize {
		return node
	}
	feature, threshold, gain := b.bestSplit(indices, positive)
	if gain <= 0 {
		return node
	}
	b.importance[feature] += gain * float32(len(indices)) / b.total
	// partition in place
	cut := 0
	for i, index := range indices {
		if b.x[index][feature] < threshold {
			indices[i], indices[cut] = indices[cut], indices[i]
			cut++
		}
	}
	node.feature = feature
	node.threshold = threshold
	node.left = b.build(indices[:cut], depth+1)
	node.right = b.build(indices[cut:], depth+1)
	return node
}

// bestSplit scans a random subset of features for the split with the largest
// Gini impurity decrease. Thresholds fall between distinct adjacent values.
func (b *treeBuilder) bestSplit(indices []int, positive float32) (bestFeature int32, bestThreshold, bestGain float32) {
	n := float32(len(indices))
	parent := giniImpurity(positive, n-positive)
	bestFeature = -1
	sorted := make([]int, len(indices))
	for _, j := range b.rng.Sample(0, len(b.x[0]), b.mtry) {
		copy(sorted, indices)
		sort.Slice(sorted, func(s, t int) bool {
			return b.x[sorted[s]][j] < b.x[sorted[t]][j]
		})
		var leftPositive, leftCount float32
		for i := 0; i < len(sorted)-1; i++ {
			leftPositive += b.y[sorted[i]]
			leftCount++
			left := b.x[sorted[i]][j]
			right := b.x[sorted[i+1]][j]
			if left == right {
				continue
			}
			if int(leftCount) < b.minLeafSize || len(sorted)-int(leftCount) < b.minLeafSize {
				continue
			}
			rightPositive := positive - leftPositive
			gain := parent -
				leftCount/n*giniImpurity(leftPositive, leftCount-leftPositive) -
				(n-leftCount)/n*giniImpurity(rightPositive, n-leftCount-rightPositive)
			if gain > bestGain {
				bestFeature = int32(j)
				bestThreshold = (left + right) / 2
				bestGain = gain
			}
		}
	}
	return
}

// giniImpurity of a node with the given class counts.
func giniImpurity(positive, negative float32) float32 {
	total := positive + negative
	if total == 0 {
		return 0
	}
	return 1 - (positive/total)*(positive/total) - (negative/total)*(negative/total)
}
