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

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ampscore/ampscore/base/log"
	"github.com/ampscore/ampscore/dataset"
	"github.com/ampscore/ampscore/model/panel"
)

var scoreCommand = &cobra.Command{
	Use:   "score TEST_FILE",
	Short: "Score labeled observations with a trained panel.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		conf := setupCommand(cmd)
		panelPath, _ := cmd.PersistentFlags().GetString("panel")
		p, err := loadPanel(conf, panelPath)
		if err != nil {
			log.Logger().Fatal("failed to load panel", zap.Error(err))
		}
		filter, _ := cmd.PersistentFlags().GetString("filter")
		testSet, err := dataset.LoadCSV(args[0], filter, true)
		if err != nil {
			log.Logger().Fatal("failed to load observations", zap.Error(err))
		}
		// The observation table must carry the feature layout the panel was
		// trained on.
		if testSet.CountFeatures() != p.NumFeatures {
			log.Logger().Fatal("observation width mismatch",
				zap.Int("expected", p.NumFeatures),
				zap.Int("actual", testSet.CountFeatures()))
		}
		names := testSet.GetFeatureNames()
		for i, index := range p.Features {
			if names[index] != p.FeatureNames[i] {
				log.Logger().Fatal("feature name mismatch",
					zap.Int32("column", index),
					zap.String("expected", p.FeatureNames[i]),
					zap.String("actual", names[index]))
			}
		}
		scores := p.ScoreAll(context.Background(), testSet, conf.Train.Jobs)
		output, _ := cmd.PersistentFlags().GetString("output")
		if output != "" {
			if err = dataset.WriteScoredCSV(output, testSet, scores); err != nil {
				log.Logger().Fatal("failed to write scores", zap.Error(err))
			}
			log.Logger().Info("write scored table", zap.String("path", output))
		}
		// Render metrics
		result := panel.Evaluate(scores, testSet.GetLabels())
		metrics := tablewriter.NewWriter(os.Stdout)
		metrics.Header([]string{"Accuracy", "Sensitivity", "Specificity"})
		metrics.Append([]string{
			fmt.Sprintf("%v", result.Accuracy),
			fmt.Sprintf("%v", result.Sensitivity),
			fmt.Sprintf("%v", result.Specificity),
		})
		metrics.Render()
	},
}

func init() {
	ampCommand.AddCommand(scoreCommand)
	scoreCommand.PersistentFlags().StringP("panel", "p", "", "read the panel from a file instead of the blob store")
	scoreCommand.PersistentFlags().String("filter", "", "filter expression applied to input rows")
	scoreCommand.PersistentFlags().StringP("output", "o", "", "write scored observations to a CSV file")
}
