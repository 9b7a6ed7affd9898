package telemetry

import (
	"context"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

func TestDisabledProviderIsNoop(t *testing.T) {
	p, err := NewProvider(context.Background(), Config{})
	if err != nil {
		t.Fatalf("NewProvider: %v", err)
	}
	if p.Enabled {
		t.Fatalf("expected disabled provider")
	}
	p.RecordCacheLookup("global")
	p.RecordStageDuration("stage1_nli", time.Millisecond)
	p.RecordLearnedWrite("written")
	p.RecordOutcome("global", "workday", true)
	_, span := p.StartSpan(context.Background(), "field", map[string]interface{}{"answer": "x"})
	span.End()
	p.Shutdown(context.Background())

	var nilProvider *Provider
	nilProvider.RecordCacheLookup("miss")
}

func TestUnsupportedProtocol(t *testing.T) {
	if _, err := NewProvider(context.Background(), Config{Enabled: true, Protocol: "carrier-pigeon"}); err == nil {
		t.Fatalf("expected error for unknown protocol")
	}
}

func TestInstrumentsRecord(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	p := newProvider(tracenoop.NewTracerProvider().Tracer(""), mp.Meter("test"))

	p.RecordCacheLookup("global")
	p.RecordCacheLookup("miss")
	p.RecordCacheLookup("miss")
	p.RecordStageDuration("stage2_semantic", 5*time.Millisecond)

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	totals := map[string]int64{}
	var sawHistogram bool
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				for _, dp := range data.DataPoints {
					totals[m.Name] += dp.Value
				}
			case metricdata.Histogram[float64]:
				sawHistogram = m.Name == "fieldsense_classifier_duration_ms" && len(data.DataPoints) == 1
			}
		}
	}
	if totals["fieldsense_cache_lookups_total"] != 3 || totals["fieldsense_cache_misses_total"] != 2 {
		t.Fatalf("unexpected counters %+v", totals)
	}
	if !sawHistogram {
		t.Fatalf("expected classifier duration histogram")
	}
}
