package helper

import (
	"context"
	"maps"
	"sync"

	"github.com/linerds/timetable-go/timetable"
)

// SpySpanContext records what the store sets on a span.
type SpySpanContext struct {
	Name       string
	Attributes map[string]string
	Status     string
	mu         sync.Mutex
}

func (s *SpySpanContext) SetStatus(status string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Status = status
}

func (s *SpySpanContext) AddAttribute(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Attributes[key] = value
}

// SpyFinishedSpan is a span handed back to FinishSpan.
type SpyFinishedSpan struct {
	Name       string
	Status     string
	Attributes map[string]string
}

// TracingCollectorSpy is a timetable.TracingCollector capturing started and finished spans.
type TracingCollectorSpy struct {
	started  []string
	finished []SpyFinishedSpan
	mu       sync.Mutex
}

func NewTracingCollectorSpy() *TracingCollectorSpy {
	return &TracingCollectorSpy{}
}

func (s *TracingCollectorSpy) StartSpan(ctx context.Context, name string, attrs map[string]string) (context.Context, timetable.SpanContext) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.started = append(s.started, name)

	return ctx, &SpySpanContext{Name: name, Attributes: maps.Clone(attrs)}
}

func (s *TracingCollectorSpy) FinishSpan(spanCtx timetable.SpanContext, status string, attrs map[string]string) {
	span, ok := spanCtx.(*SpySpanContext)
	if !ok {
		return
	}

	span.mu.Lock()
	merged := maps.Clone(span.Attributes)
	span.mu.Unlock()

	if merged == nil {
		merged = make(map[string]string)
	}

	maps.Copy(merged, attrs)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.finished = append(s.finished, SpyFinishedSpan{Name: span.Name, Status: status, Attributes: merged})
}

// StartedSpans returns the names of all started spans.
func (s *TracingCollectorSpy) StartedSpans() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]string(nil), s.started...)
}

// FinishedSpans returns all finished spans with start and finish attributes merged.
func (s *TracingCollectorSpy) FinishedSpans() []SpyFinishedSpan {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]SpyFinishedSpan(nil), s.finished...)
}

// FinishedSpan returns the first finished span with the given name.
func (s *TracingCollectorSpy) FinishedSpan(name string) (SpyFinishedSpan, bool) {
	for _, span := range s.FinishedSpans() {
		if span.Name == name {
			return span, true
		}
	}

	return SpyFinishedSpan{}, false
}
