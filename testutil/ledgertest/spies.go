package ledgertest

import (
	"context"
	"log/slog"
	"maps"
	"sync"
	"time"

	"github.com/bookverse/borrowledger/journal"
)

// MetricRecord is one captured metrics call.
type MetricRecord struct {
	Metric   string
	Duration time.Duration
	Value    float64
	Labels   map[string]string
}

// MetricsCollectorSpy captures every metrics call.
type MetricsCollectorSpy struct {
	mu        sync.Mutex
	durations []MetricRecord
	counters  []MetricRecord
	values    []MetricRecord
}

func (s *MetricsCollectorSpy) RecordDuration(metric string, duration time.Duration, labels map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.durations = append(s.durations, MetricRecord{Metric: metric, Duration: duration, Labels: maps.Clone(labels)})
}

func (s *MetricsCollectorSpy) IncrementCounter(metric string, labels map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.counters = append(s.counters, MetricRecord{Metric: metric, Labels: maps.Clone(labels)})
}

func (s *MetricsCollectorSpy) RecordValue(metric string, value float64, labels map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.values = append(s.values, MetricRecord{Metric: metric, Value: value, Labels: maps.Clone(labels)})
}

// Durations returns the duration records of metric.
func (s *MetricsCollectorSpy) Durations(metric string) []MetricRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	return matching(s.durations, metric)
}

// Counters returns the counter records of metric.
func (s *MetricsCollectorSpy) Counters(metric string) []MetricRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	return matching(s.counters, metric)
}

// Values returns the value records of metric.
func (s *MetricsCollectorSpy) Values(metric string) []MetricRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	return matching(s.values, metric)
}

func matching(records []MetricRecord, metric string) []MetricRecord {
	var found []MetricRecord

	for _, record := range records {
		if record.Metric == metric {
			found = append(found, record)
		}
	}

	return found
}

var _ journal.MetricsCollector = (*MetricsCollectorSpy)(nil)

// SpanRecord is one started span. Status stays empty until the span is finished.
type SpanRecord struct {
	Name     string
	Attrs    map[string]string
	Status   string
	Finished bool
}

// TracingCollectorSpy captures spans.
type TracingCollectorSpy struct {
	mu    sync.Mutex
	spans []*SpanRecord
}

type spySpan struct {
	spy    *TracingCollectorSpy
	record *SpanRecord
}

func (s spySpan) SetStatus(status string) {
	s.spy.mu.Lock()
	defer s.spy.mu.Unlock()

	s.record.Status = status
}

func (s spySpan) AddAttribute(key, value string) {
	s.spy.mu.Lock()
	defer s.spy.mu.Unlock()

	s.record.Attrs[key] = value
}

func (s *TracingCollectorSpy) StartSpan(ctx context.Context, name string, attrs map[string]string) (context.Context, journal.SpanContext) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record := &SpanRecord{Name: name, Attrs: maps.Clone(attrs)}
	if record.Attrs == nil {
		record.Attrs = make(map[string]string)
	}

	s.spans = append(s.spans, record)

	return ctx, spySpan{spy: s, record: record}
}

func (s *TracingCollectorSpy) FinishSpan(spanCtx journal.SpanContext, status string, attrs map[string]string) {
	span, ok := spanCtx.(spySpan)
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	maps.Copy(span.record.Attrs, attrs)
	span.record.Status = status
	span.record.Finished = true
}

// Spans returns copies of the spans called name, in start order.
func (s *TracingCollectorSpy) Spans(name string) []SpanRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	var found []SpanRecord

	for _, record := range s.spans {
		if record.Name == name {
			copied := *record
			copied.Attrs = maps.Clone(record.Attrs)
			found = append(found, copied)
		}
	}

	return found
}

var _ journal.TracingCollector = (*TracingCollectorSpy)(nil)

// LogRecord is one captured slog record.
type LogRecord struct {
	Level   slog.Level
	Message string
	Attrs   map[string]string
}

// LogHandlerSpy is a slog.Handler that keeps every record, e.g. behind slog.New.
type LogHandlerSpy struct {
	mu      *sync.Mutex
	records *[]LogRecord
	attrs   []slog.Attr
}

func NewLogHandlerSpy() *LogHandlerSpy {
	return &LogHandlerSpy{mu: &sync.Mutex{}, records: &[]LogRecord{}}
}

func (h *LogHandlerSpy) Enabled(context.Context, slog.Level) bool {
	return true
}

func (h *LogHandlerSpy) Handle(_ context.Context, record slog.Record) error {
	attrs := make(map[string]string)
	for _, attr := range h.attrs {
		attrs[attr.Key] = attr.Value.String()
	}

	record.Attrs(func(attr slog.Attr) bool {
		attrs[attr.Key] = attr.Value.String()

		return true
	})

	h.mu.Lock()
	defer h.mu.Unlock()

	*h.records = append(*h.records, LogRecord{Level: record.Level, Message: record.Message, Attrs: attrs})

	return nil
}

func (h *LogHandlerSpy) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &LogHandlerSpy{mu: h.mu, records: h.records, attrs: append(append([]slog.Attr{}, h.attrs...), attrs...)}
}

// WithGroup is not needed by the ledger, groups are flattened.
func (h *LogHandlerSpy) WithGroup(string) slog.Handler {
	return h
}

// Records returns the records logged with message msg.
func (h *LogHandlerSpy) Records(msg string) []LogRecord {
	h.mu.Lock()
	defer h.mu.Unlock()

	var found []LogRecord

	for _, record := range *h.records {
		if record.Message == msg {
			found = append(found, record)
		}
	}

	return found
}
