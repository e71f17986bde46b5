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
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ampscore/ampscore/base/log"
	"github.com/ampscore/ampscore/dataset"
)

var simulateCommand = &cobra.Command{
	Use:   "simulate OUTPUT_FILE",
	Short: "Generate a synthetic two-class observation table.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		debug, _ := cmd.Flags().GetBool("debug")
		log.SetLogger(cmd.Flags(), debug)
		positiveSamples, _ := cmd.PersistentFlags().GetInt("positive-samples")
		negativeSamples, _ := cmd.PersistentFlags().GetInt("negative-samples")
		observations, _ := cmd.PersistentFlags().GetInt("observations")
		features, _ := cmd.PersistentFlags().GetInt("features")
		informative, _ := cmd.PersistentFlags().GetInt("informative")
		positiveMean, _ := cmd.PersistentFlags().GetFloat32("positive-mean")
		negativeMean, _ := cmd.PersistentFlags().GetFloat32("negative-mean")
		stdDev, _ := cmd.PersistentFlags().GetFloat32("std-dev")
		seed, _ := cmd.PersistentFlags().GetInt64("seed")
		table := dataset.Simulate(dataset.SimulatorConfig{
			PositiveSamples:       positiveSamples,
			NegativeSamples:       negativeSamples,
			ObservationsPerSample: observations,
			NumFeatures:           features,
			PositiveMean:          positiveMean,
			NegativeMean:          negativeMean,
			StdDev:                stdDev,
			Informative:           informative,
			RandomState:           seed,
		})
		if err := dataset.WriteCSV(args[0], table); err != nil {
			log.Logger().Fatal("failed to write observations", zap.Error(err))
		}
		log.Logger().Info("write observation table",
			zap.String("path", args[0]),
			zap.Int("n_observations", table.Count()),
			zap.Int("n_samples", table.CountSamples()),
			zap.Int("n_features", table.CountFeatures()))
	},
}

func init() {
	ampCommand.AddCommand(simulateCommand)
	simulateCommand.PersistentFlags().Int("positive-samples", 10, "number of case samples")
	simulateCommand.PersistentFlags().Int("negative-samples", 10, "number of control samples")
	simulateCommand.PersistentFlags().Int("observations", 100, "observations per sample")
	simulateCommand.PersistentFlags().Int("features", 500, "feature vector length")
	simulateCommand.PersistentFlags().Int("informative", 4, "number of informative features")
	simulateCommand.PersistentFlags().Float32("positive-mean", 4, "mean of informative features in case samples")
	simulateCommand.PersistentFlags().Float32("negative-mean", 2, "mean of features in control samples")
	simulateCommand.PersistentFlags().Float32("std-dev", 1, "standard deviation of features")
	simulateCommand.PersistentFlags().Int64("seed", 0, "random seed of the generator")
}
