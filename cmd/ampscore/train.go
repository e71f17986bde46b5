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
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ampscore/ampscore/base/log"
	"github.com/ampscore/ampscore/base/progress"
	"github.com/ampscore/ampscore/common/util"
	"github.com/ampscore/ampscore/dataset"
	"github.com/ampscore/ampscore/model/panel"
)

var trainCommand = &cobra.Command{
	Use:   "train TRAIN_FILE",
	Short: "Train an aggregate marker panel from labeled observations.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		conf := setupCommand(cmd)
		filter, _ := cmd.PersistentFlags().GetString("filter")
		table, err := dataset.LoadCSV(args[0], filter, true)
		if err != nil {
			log.Logger().Fatal("failed to load observations", zap.Error(err))
		}
		trainConfig := conf.Train.GetTrainConfig()
		if cmd.PersistentFlags().Changed("jobs") {
			jobs, _ := cmd.PersistentFlags().GetInt("jobs")
			trainConfig.SetJobs(jobs)
		}
		if cmd.PersistentFlags().Changed("seed") {
			seed, _ := cmd.PersistentFlags().GetInt64("seed")
			trainConfig.SetSeed(seed)
		}
		// Train panel
		tracer := progress.NewTracer("train")
		ctx, span := tracer.Start(context.Background(), "Train", 1)
		monitorDone := make(chan struct{})
		go func() {
			defer util.CheckPanic()
			ticker := time.NewTicker(10 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-monitorDone:
					return
				case <-ticker.C:
					for _, p := range tracer.List() {
						log.Logger().Info("training progress",
							zap.String("status", string(p.Status)),
							zap.Int("count", p.Count),
							zap.Int("total", p.Total))
					}
				}
			}
		}()
		start := time.Now()
		report, err := panel.Train(ctx, table, trainConfig)
		close(monitorDone)
		if err != nil {
			span.Fail(err)
			log.Logger().Fatal("failed to train panel", zap.Error(err))
		}
		span.End()
		elapsed := time.Since(start)
		// Render selector diagnostics
		diagnostics := tablewriter.NewWriter(os.Stdout)
		diagnostics.Header([]string{"Selector", "Selected", "Accuracy", "AUC", "CV Error", "OOB Error", "Error"})
		for _, diagnostic := range report.Panel.Diagnostics {
			diagnostics.Append([]string{
				diagnostic.Selector,
				fmt.Sprintf("%v", diagnostic.Score.NumSelected),
				fmt.Sprintf("%v", diagnostic.Score.Accuracy),
				fmt.Sprintf("%v", diagnostic.Score.AUC),
				fmt.Sprintf("%v", diagnostic.Score.CVError),
				fmt.Sprintf("%v", diagnostic.Score.OOBError),
				diagnostic.Error,
			})
		}
		diagnostics.Render()
		// Render consensus panel
		weights := tablewriter.NewWriter(os.Stdout)
		weights.Header([]string{"#", "Feature", "Weight"})
		for i, name := range report.Panel.FeatureNames {
			weights.Append([]string{
				fmt.Sprintf("%v", i),
				name,
				fmt.Sprintf("%v", report.Panel.Weights[i]),
			})
		}
		weights.Render()
		// Render metrics
		metrics := tablewriter.NewWriter(os.Stdout)
		metrics.Header([]string{"", "Accuracy", "Sensitivity", "Specificity"})
		metrics.Append([]string{
			"train",
			fmt.Sprintf("%v", report.TrainMetrics.Accuracy),
			fmt.Sprintf("%v", report.TrainMetrics.Sensitivity),
			fmt.Sprintf("%v", report.TrainMetrics.Specificity),
		})
		metrics.Append([]string{
			"test",
			fmt.Sprintf("%v", report.TestMetrics.Accuracy),
			fmt.Sprintf("%v", report.TestMetrics.Sensitivity),
			fmt.Sprintf("%v", report.TestMetrics.Specificity),
		})
		metrics.Render()
		// Save panel
		output, _ := cmd.PersistentFlags().GetString("output")
		if err = savePanel(report.Panel, conf, output); err != nil {
			log.Logger().Fatal("failed to save panel", zap.Error(err))
		}
		log.Logger().Info("panel trained",
			zap.Duration("elapsed", elapsed),
			zap.Int("n_selected", len(report.Panel.Features)),
			zap.Bool("degraded", report.Panel.Degraded),
			zap.Float32("cutpoint", report.Panel.Calibration.Cutpoint),
			zap.Float32("youden_j", report.YoudenJ))
	},
}

func init() {
	ampCommand.AddCommand(trainCommand)
	trainCommand.PersistentFlags().String("filter", "", "filter expression applied to input rows")
	trainCommand.PersistentFlags().StringP("output", "o", "", "write the panel to a file instead of the blob store")
	trainCommand.PersistentFlags().IntP("jobs", "j", runtime.NumCPU(), "number of jobs for selector fitting")
	trainCommand.PersistentFlags().Int64("seed", 0, "random seed of the training pipeline")
}
