// Copyright 2023 ampscore Project Authors
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

package progress

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/atomic"
)

type spanKeyType string

var spanKeyName = spanKeyType(uuid.New().String())

type Status string

const (
	StatusPending  Status = "Pending"
	StatusComplete Status = "Complete"
	StatusRunning  Status = "Running"
	StatusFailed   Status = "Failed"
)

// Tracer collects the root spans of a named workflow.
type Tracer struct {
	name  string
	spans sync.Map
}

func NewTracer(name string) *Tracer {
	return &Tracer{name: name}
}

// Start creates a root span.
func (t *Tracer) Start(ctx context.Context, name string, total int) (context.Context, *Span) {
	span := &Span{
		name:   name,
		status: StatusRunning,
		total:  total,
		start:  time.Now(),
	}
	t.spans.Store(name, span)
	return context.WithValue(ctx, spanKeyName, span), span
}

// List returns one rolled-up progress entry per root span. A running child
// span refines its parent's resolution: the parent total is scaled by the
// child total and the child count is folded into the parent count. Failed
// children propagate their status and error to the root entry.
func (t *Tracer) List() []Progress {
	var progress []Progress
	t.spans.Range(func(key, value interface{}) bool {
		span := value.(*Span)
		progress = append(progress, span.Progress(t.name))
		return true
	})
	return progress
}

type Span struct {
	name     string
	status   Status
	total    int
	count    atomic.Int64
	err      error
	start    time.Time
	finish   time.Time
	children sync.Map
}

func (s *Span) Add(n int) {
	s.count.Add(int64(n))
}

func (s *Span) End() {
	if s.status == StatusRunning {
		s.status = StatusComplete
		s.count.Store(int64(s.total))
		s.finish = time.Now()
	}
}

func (s *Span) Fail(err error) {
	s.status = StatusFailed
	s.err = err
	s.finish = time.Now()
}

func (s *Span) Count() int {
	return int(s.count.Load())
}

func (s *Span) Progress(tracer string) Progress {
	status := s.status
	err := s.err
	total := s.total
	count := s.Count()
	s.children.Range(func(key, value interface{}) bool {
		child := value.(*Span)
		switch child.status {
		case StatusRunning:
			total = s.total * child.total
			count = s.Count()*child.total + child.Count()
		case StatusFailed:
			status = StatusFailed
			err = child.err
		}
		return true
	})
	var errMessage string
	if err != nil {
		errMessage = err.Error()
	}
	return Progress{
		Tracer:     tracer,
		Name:       s.name,
		Status:     status,
		Error:      errMessage,
		Count:      count,
		Total:      total,
		StartTime:  s.start,
		FinishTime: s.finish,
	}
}

type Progress struct {
	Tracer     string
	Name       string
	Status     Status
	Error      string
	Count      int
	Total      int
	StartTime  time.Time
	FinishTime time.Time
}

// Start creates a child span under the span carried by the context. A detached
// span is returned when the context carries none, so callers never need to
// check for a tracker before reporting progress.
func Start(ctx context.Context, name string, total int) (context.Context, *Span) {
	childSpan := &Span{
		name:   name,
		status: StatusRunning,
		total:  total,
		start:  time.Now(),
	}
	if ctx == nil {
		return nil, childSpan
	}
	span, ok := (ctx).Value(spanKeyName).(*Span)
	if !ok {
		return ctx, childSpan
	}
	span.children.Store(name, childSpan)
	return context.WithValue(ctx, spanKeyName, childSpan), childSpan
}

// Fail marks the span carried by the context as failed.
func Fail(ctx context.Context, err error) {
	if ctx == nil {
		return
	}
	if span, ok := ctx.Value(spanKeyName).(*Span); ok {
		span.Fail(err)
	}
}
