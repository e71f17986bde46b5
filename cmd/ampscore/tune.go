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
package main

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ampscore/ampscore/base/log"
	"github.com/ampscore/ampscore/dataset"
	"github.com/ampscore/ampscore/model"
	"github.com/ampscore/ampscore/model/selector"
)

const (
	intFlag     = 0
	float64Flag = 1
)

type paramFlag struct {
	Type int
	Key  model.ParamName
	Name string
	Help string
}

var selectorParamFlags = []paramFlag{
	{float64Flag, model.Reg, "reg", "Regularization strength"},
	{float64Flag, model.Tolerance, "tolerance", "Convergence tolerance"},
	{intFlag, model.NEpochs, "n-epochs", "Number of epochs"},
	{intFlag, model.NTrees, "n-trees", "Number of trees in the ensemble"},
	{intFlag, model.MaxDepth, "max-depth", "Maximum depth of a tree"},
	{intFlag, model.MinLeafSize, "min-leaf-size", "Minimum number of observations per leaf"},
	{intFlag, model.MaxFeatures, "max-features", "Number of features probed per split"},
	{intFlag, model.TopK, "top-k", "Number of top ranked features to keep"},
	{intFlag, model.NFolds, "n-folds", "Number of cross validation folds"},
	{intFlag, model.NLambdas, "n-lambdas", "Number of penalties on the regularization path"},
}

func parseParamFlags(cmd *cobra.Command) model.ParamsGrid {
	grid := make(model.ParamsGrid)
	for _, flag := range selectorParamFlags {
		if cmd.PersistentFlags().Changed(flag.Name) {
			text, err := cmd.PersistentFlags().GetString(flag.Name)
			if err != nil {
				log.Logger().Fatal("failed to get arguments", zap.Error(err))
			}
			grid[flag.Key] = parseParamList(text, flag.Type)
		}
	}
	return grid
}

func parseParamList(text string, tp int) []interface{} {
	if text == "" {
		log.Logger().Fatal("empty string for param list")
	}
	if text[0] == '[' && text[len(text)-1] == ']' {
		text = text[1 : len(text)-1]
	}
	paramTexts := strings.Split(text, ",")
	params := make([]interface{}, len(paramTexts))
	for i, paramText := range paramTexts {
		params[i] = parseParam(paramText, tp)
	}
	return params
}

func parseParam(text string, tp int) interface{} {
	switch tp {
	case intFlag:
		i, err := strconv.Atoi(text)
		if err != nil {
			log.Logger().Fatal("failed to parse param", zap.Error(err))
		}
		return i
	case float64Flag:
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			log.Logger().Fatal("failed to parse param", zap.Error(err))
		}
		return f
	default:
		log.Logger().Fatal("unknown parameter type", zap.Int("type", tp))
		return nil
	}
}

var tuneCommand = &cobra.Command{
	Use:   "tune TRAIN_FILE",
	Short: "Search selector hyper-parameters on labeled observations.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		conf := setupCommand(cmd)
		filter, _ := cmd.PersistentFlags().GetString("filter")
		table, err := dataset.LoadCSV(args[0], filter, true)
		if err != nil {
			log.Logger().Fatal("failed to load observations", zap.Error(err))
		}
		seed := conf.Train.Seed
		if cmd.PersistentFlags().Changed("seed") {
			seed, _ = cmd.PersistentFlags().GetInt64("seed")
		}
		trainSet, testSet, err := table.SplitBySample(conf.Train.TrainFraction, seed)
		if err != nil {
			log.Logger().Fatal("failed to split observations", zap.Error(err))
		}
		jobs := conf.Train.Jobs
		if cmd.PersistentFlags().Changed("jobs") {
			jobs, _ = cmd.PersistentFlags().GetInt("jobs")
		}
		trials, _ := cmd.PersistentFlags().GetInt("trials")
		searchSize, _ := cmd.PersistentFlags().GetBool("search-size")
		fitConfig := selector.NewFitConfig().SetJobs(jobs).SetVerbose(conf.Train.Verbose)
		name, _ := cmd.PersistentFlags().GetString("selector")
		if name == "" {
			tuneAll(trials, searchSize, trainSet, testSet, fitConfig)
		} else {
			tuneSelector(cmd, name, trials, searchSize, seed, trainSet, testSet, fitConfig)
		}
	},
}

// tuneAll searches the hyper-parameter grids of every selector and reports
// the best one.
func tuneAll(trials int, searchSize bool, trainSet, testSet *dataset.Table, fitConfig *selector.FitConfig) {
	searcher := selector.NewModelSearcher(trials, searchSize)
	start := time.Now()
	if err := searcher.Fit(context.Background(), trainSet, testSet, fitConfig); err != nil {
		log.Logger().Fatal("failed to search selectors", zap.Error(err))
	}
	elapsed := time.Since(start)
	name, best, score := searcher.GetBestModel()
	result := tablewriter.NewWriter(os.Stdout)
	result.Header([]string{"Selector", "Selected", "Accuracy", "AUC", "CV Error", "OOB Error"})
	result.Append([]string{
		name,
		fmt.Sprintf("%v", score.NumSelected),
		fmt.Sprintf("%v", score.Accuracy),
		fmt.Sprintf("%v", score.AUC),
		fmt.Sprintf("%v", score.CVError),
		fmt.Sprintf("%v", score.OOBError),
	})
	result.Render()
	log.Logger().Info("search complete",
		zap.String("selector", name),
		zap.Any("params", best.GetParams()),
		zap.Duration("elapsed", elapsed))
}

// tuneSelector searches one selector over the grid assembled from parameter
// flags, falling back to the selector's own grid for unset parameters.
func tuneSelector(cmd *cobra.Command, name string, trials int, searchSize bool, seed int64,
	trainSet, testSet *dataset.Table, fitConfig *selector.FitConfig) {
	m, err := selector.NewModel(name, nil)
	if err != nil {
		log.Logger().Fatal("failed to create selector", zap.Error(err))
	}
	grid := parseParamFlags(cmd)
	grid.Fill(m.GetParamsGrid(searchSize))
	log.Logger().Info("tune hyper-parameters",
		zap.String("selector", name),
		zap.Any("grid", grid))
	start := time.Now()
	r := selector.RandomSearchCV(context.Background(), m, trainSet, testSet, grid, trials, seed, fitConfig)
	elapsed := time.Since(start)
	result := tablewriter.NewWriter(os.Stdout)
	result.Header([]string{"#", "Selected", "Accuracy", "AUC", "CV Error", "Params"})
	for i := range r.Params {
		score := r.Scores[i]
		result.Append([]string{
			fmt.Sprintf("%v", i),
			fmt.Sprintf("%v", score.NumSelected),
			fmt.Sprintf("%v", score.Accuracy),
			fmt.Sprintf("%v", score.AUC),
			fmt.Sprintf("%v", score.CVError),
			fmt.Sprintf("%v", r.Params[i]),
		})
	}
	result.Render()
	log.Logger().Info("search complete",
		zap.String("selector", name),
		zap.Any("params", r.BestParams),
		zap.Duration("elapsed", elapsed))
}

func init() {
	ampCommand.AddCommand(tuneCommand)
	tuneCommand.PersistentFlags().String("filter", "", "filter expression applied to input rows")
	tuneCommand.PersistentFlags().String("selector", "", "tune a single selector (lasso, forest or svm)")
	tuneCommand.PersistentFlags().Int("trials", 10, "number of random search trials per selector")
	tuneCommand.PersistentFlags().Bool("search-size", false, "search the selection size as well")
	tuneCommand.PersistentFlags().IntP("jobs", "j", runtime.NumCPU(), "number of jobs for selector fitting")
	tuneCommand.PersistentFlags().Int64("seed", 0, "random seed of the train test split")
	for _, flag := range selectorParamFlags {
		tuneCommand.PersistentFlags().String(flag.Name, "", flag.Help)
	}
}
