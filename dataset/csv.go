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

package dataset

import (
	"encoding/csv"
	"io"
	"os"
	"reflect"
	"strconv"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/juju/errors"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"
	"modernc.org/strutil"

	"github.com/ampscore/ampscore/base/log"
	"github.com/ampscore/ampscore/common/encoding"
	"github.com/ampscore/ampscore/common/util"
)

// Leading columns of an observation table. Every remaining column is a
// feature.
var requiredColumns = []string{"sample_id", "x", "y", "label"}

// LoadCSV reads an observation table of the form
// {sample_id, x, y, label, feature...}. The optional filter expression is
// evaluated per row with sample_id, x, y and label in scope; rows evaluating
// to false are skipped. A progress bar is rendered while reading when verbose
// is true.
func LoadCSV(path string, filter string, verbose bool) (*Table, error) {
	// Compile filter expression
	var filterFunc *vm.Program
	if filter != "" {
		var err error
		filterFunc, err = expr.Compile(filter, expr.Env(map[string]any{
			"sample_id": "",
			"x":         0,
			"y":         0,
			"label":     0.0,
		}))
		if err != nil {
			return nil, errors.Trace(err)
		}
		if filterFunc.Node().Type().Kind() != reflect.Bool {
			return nil, errors.New("filter expression must return bool")
		}
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Trace(err)
	}
	defer file.Close()
	var source io.Reader = file
	if verbose {
		stat, err := file.Stat()
		if err != nil {
			return nil, errors.Trace(err)
		}
		pbReader := progressbar.NewReader(file, progressbar.DefaultBytes(
			stat.Size(),
			"Loading observations",
		))
		source = &pbReader
	}
	reader := csv.NewReader(source)
	reader.ReuseRecord = true
	// Parse header
	header, err := reader.Read()
	if err != nil {
		return nil, errors.Trace(err)
	}
	if len(header) < len(requiredColumns)+1 {
		return nil, errors.Errorf("expect columns {sample_id,x,y,label,feature...}, got %v", header)
	}
	for i, name := range requiredColumns {
		if header[i] != name {
			return nil, errors.Errorf("expect column %d to be %v, got %v", i, name, header[i])
		}
	}
	featureNames := append([]string(nil), header[len(requiredColumns):]...)
	// Parse rows
	table := NewTable(featureNames, 0)
	pool := strutil.NewPool()
	skipped := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, errors.Trace(err)
		}
		sampleId := pool.Align(record[0])
		x, err := util.ParseInt[int32](record[1])
		if err != nil {
			return nil, errors.Trace(err)
		}
		y, err := util.ParseInt[int32](record[2])
		if err != nil {
			return nil, errors.Trace(err)
		}
		label, err := util.ParseFloat[float32](record[3])
		if err != nil {
			return nil, errors.Trace(err)
		}
		if label != 0 && label != 1 {
			return nil, errors.Errorf("expect binary label, got %v", record[3])
		}
		if filterFunc != nil {
			result, err := expr.Run(filterFunc, map[string]any{
				"sample_id": sampleId,
				"x":         int(x),
				"y":         int(y),
				"label":     float64(label),
			})
			if err != nil {
				return nil, errors.Trace(err)
			}
			if !result.(bool) {
				skipped++
				continue
			}
		}
		features := make([]float32, len(featureNames))
		for j := range features {
			features[j], err = util.ParseFloat[float32](record[len(requiredColumns)+j])
			if err != nil {
				return nil, errors.Trace(err)
			}
		}
		table.Add(sampleId, x, y, label, features)
	}
	minObs, maxObs := table.ObservationRange()
	log.Logger().Info("load observation table",
		zap.String("path", path),
		zap.Int("n_observations", table.Count()),
		zap.Int("n_samples", table.CountSamples()),
		zap.Int("n_features", table.CountFeatures()),
		zap.Int("n_positive", table.CountPositive()),
		zap.Int("min_sample_observations", minObs),
		zap.Int("max_sample_observations", maxObs),
		zap.Int("n_skipped", skipped))
	return table, nil
}

// WriteCSV writes the full observation table of the form
// {sample_id, x, y, label, feature...}, the format accepted by LoadCSV.
func WriteCSV(path string, table *Table) error {
	file, err := os.Create(path)
	if err != nil {
		return errors.Trace(err)
	}
	defer file.Close()
	writer := csv.NewWriter(file)
	header := append([]string(nil), requiredColumns...)
	header = append(header, table.featureNames...)
	if err = writer.Write(header); err != nil {
		return errors.Trace(err)
	}
	record := make([]string, len(header))
	for i := 0; i < table.Count(); i++ {
		record[0] = table.SampleId(table.samples[i])
		record[1] = strconv.Itoa(int(table.x[i]))
		record[2] = strconv.Itoa(int(table.y[i]))
		record[3] = strconv.Itoa(int(table.labels[i]))
		for j, value := range table.features[i] {
			record[len(requiredColumns)+j] = encoding.FormatFloat32(value)
		}
		if err = writer.Write(record); err != nil {
			return errors.Trace(err)
		}
	}
	writer.Flush()
	return errors.Trace(writer.Error())
}

// WriteScoredCSV writes one row per observation of the form
// {sample_id, x, y, label, score}, the scored table consumed by external
// visualization tools.
func WriteScoredCSV(path string, table *Table, scores []float32) error {
	if len(scores) != table.Count() {
		return errors.Errorf("expect %d scores, got %d", table.Count(), len(scores))
	}
	file, err := os.Create(path)
	if err != nil {
		return errors.Trace(err)
	}
	defer file.Close()
	writer := csv.NewWriter(file)
	if err = writer.Write([]string{"sample_id", "x", "y", "label", "score"}); err != nil {
		return errors.Trace(err)
	}
	for i := 0; i < table.Count(); i++ {
		record := []string{
			table.SampleId(table.samples[i]),
			strconv.Itoa(int(table.x[i])),
			strconv.Itoa(int(table.y[i])),
			strconv.Itoa(int(table.labels[i])),
			encoding.FormatFloat32(scores[i]),
		}
		if err = writer.Write(record); err != nil {
			return errors.Trace(err)
		}
	}
	writer.Flush()
	return errors.Trace(writer.Error())
}
