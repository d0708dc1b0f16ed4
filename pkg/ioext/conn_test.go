package ioext

import (
	"context"
	"net"
	"testing"

	dto "github.com/prometheus/client_model/go"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/outpost-proxy/dpicore/pkg/stats"
)

func TestConnReadWriteAccountsBytes(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	reg := prometheus.NewRegistry()
	sinks := stats.NewRegistry(reg)
	ctx := context.Background()

	wrapped := NewConn(ctx, client,
		Direction{Sinks: stats.Sinks{sinks.TaskSink("upstream_to_client")}},
		Direction{Sinks: stats.Sinks{sinks.TaskSink("client_to_upstream")}},
	)

	payload := []byte("hello world")
	go func() {
		server.Write(payload)
	}()

	buf := make([]byte, len(payload))
	n, err := wrapped.Read(buf)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if n != len(payload) {
		t.Fatalf("n = %d, want %d", n, len(payload))
	}

	readBytes := gatherCounterValue(t, reg, "dpicore_task_bytes_total", "direction", "upstream_to_client")
	if readBytes != float64(len(payload)) {
		t.Fatalf("accounted read bytes = %v, want %v", readBytes, len(payload))
	}
}

// gatherCounterValue reads a single labeled counter's value straight out
// of the registry, without needing an exported accessor on stats.Sink.
func gatherCounterValue(t *testing.T, reg *prometheus.Registry, name, labelName, labelValue string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			if labelMatches(m, labelName, labelValue) {
				return m.GetCounter().GetValue()
			}
		}
	}
	t.Fatalf("metric %s{%s=%q} not found", name, labelName, labelValue)
	return 0
}

func labelMatches(m *dto.Metric, labelName, labelValue string) bool {
	for _, lp := range m.GetLabel() {
		if lp.GetName() == labelName && lp.GetValue() == labelValue {
			return true
		}
	}
	return false
}
