// Copyright 2020 ampscore Project Authors
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
package model

import (
	"github.com/stretchr/testify/assert"
	"testing"
)

func TestParams_Copy(t *testing.T) {
	// Create parameters
	a := Params{
		NTrees:      1,
		Tolerance:   0.1,
		RandomState: 0,
	}
	// Create copy
	b := a.Copy()
	b[NTrees] = 2
	b[Tolerance] = 0.2
	b[RandomState] = 1
	// Check original parameters
	assert.Equal(t, 1, a.GetInt(NTrees, -1))
	assert.Equal(t, 0.1, a.GetFloat64(Tolerance, -0.1))
	assert.Equal(t, int64(0), a.GetInt64(RandomState, -1))
	// Check copy parameters
	assert.Equal(t, 2, b.GetInt(NTrees, -1))
	assert.Equal(t, 0.2, b.GetFloat64(Tolerance, -0.1))
	assert.Equal(t, int64(1), b.GetInt64(RandomState, -1))
}

func TestParams_GetFloat64(t *testing.T) {
	p := Params{}
	// Empty case
	assert.Equal(t, 0.1, p.GetFloat64(Tolerance, 0.1))
	// Normal case
	p[Tolerance] = 1.0
	assert.Equal(t, 1.0, p.GetFloat64(Tolerance, 0.1))
	// Wrong type case
	p[Tolerance] = 1
	assert.Equal(t, 1.0, p.GetFloat64(Tolerance, 0.1))
	p[Tolerance] = "hello"
	assert.Equal(t, 0.1, p.GetFloat64(Tolerance, 0.1))
}

func TestParams_GetFloat32(t *testing.T) {
	p := Params{}
	// Empty case
	assert.Equal(t, float32(0.1), p.GetFloat32(Reg, 0.1))
	// Normal case
	p[Reg] = float32(1.0)
	assert.Equal(t, float32(1.0), p.GetFloat32(Reg, 0.1))
	// Wrong type case
	p[Reg] = 1.0
	assert.Equal(t, float32(1.0), p.GetFloat32(Reg, 0.1))
	p[Reg] = "hello"
	assert.Equal(t, float32(0.1), p.GetFloat32(Reg, 0.1))
}

func TestParams_GetInt(t *testing.T) {
	p := Params{}
	// Empty case
	assert.Equal(t, -1, p.GetInt(NTrees, -1))
	// Normal case
	p[NTrees] = 0
	assert.Equal(t, 0, p.GetInt(NTrees, -1))
	// Wrong type case
	p[NTrees] = "hello"
	assert.Equal(t, -1, p.GetInt(NTrees, -1))
}

func TestParams_GetInt64(t *testing.T) {
	p := Params{}
	// Empty case
	assert.Equal(t, int64(-1), p.GetInt64(RandomState, -1))
	// Normal case
	p[RandomState] = int64(0)
	assert.Equal(t, int64(0), p.GetInt64(RandomState, -1))
	// Wrong type case
	p[RandomState] = 0
	assert.Equal(t, int64(0), p.GetInt64(RandomState, -1))
	p[RandomState] = "hello"
	assert.Equal(t, int64(-1), p.GetInt64(RandomState, -1))
}

func TestParamsGrid(t *testing.T) {
	grid := ParamsGrid{
		NTrees: []interface{}{100, 500, 1000},
		TopK:   []interface{}{50, 100},
	}
	assert.Equal(t, 2, grid.Len())
	assert.Equal(t, 6, grid.NumCombinations())
	grid.Fill(ParamsGrid{
		NTrees: []interface{}{10},
		NFolds: []interface{}{5, 10},
	})
	assert.Equal(t, []interface{}{100, 500, 1000}, grid[NTrees])
	assert.Equal(t, []interface{}{5, 10}, grid[NFolds])
	assert.Equal(t, 12, grid.NumCombinations())
}

func TestBaseModel(t *testing.T) {
	m := new(BaseModel)
	m.SetParams(Params{RandomState: int64(42), TopK: 10})
	assert.Equal(t, 10, m.GetParams().GetInt(TopK, -1))
	assert.NotNil(t, m.GetRandomGenerator())
	// models sharing a random state draw the same sequence
	o := new(BaseModel)
	o.SetParams(Params{RandomState: int64(42)})
	assert.Equal(t, m.GetRandomGenerator().Int63(), o.GetRandomGenerator().Int63())
}
