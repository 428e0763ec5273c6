package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"

	"github.com/example/readyctl/internal/depgraph"
	"github.com/example/readyctl/internal/scheduler"
)

func sampleResult() *scheduler.PlanResult {
	db := depgraph.NodeID{Kind: "Deployment", Name: "db", Namespace: "prod"}
	api := depgraph.NodeID{Kind: "Deployment", Name: "api", Namespace: "prod"}
	return &scheduler.PlanResult{
		Success: false,
		Layers:  [][]depgraph.NodeID{{db}, {api}},
		Elapsed: 1500 * time.Millisecond,
		Results: []scheduler.NodeResult{
			{ID: db, State: depgraph.StateReady, Layer: 0, Attempts: 3, Elapsed: time.Second, Detail: "2/2 replicas ready (target 2)"},
			{ID: api, State: depgraph.StateTimedOut, Layer: 1, Attempts: 5, Elapsed: 500 * time.Millisecond, Error: "probe timed out after 500ms"},
		},
	}
}

func TestWriteTable(t *testing.T) {
	color.NoColor = true
	var buf bytes.Buffer
	if err := Write(&buf, sampleResult(), FormatTable); err != nil {
		t.Fatalf("Write: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"PLAN", "FAILED",
		"ready=1", "timed-out=1",
		"Deployment/prod/db", "Ready", "2/2 replicas ready",
		"Deployment/prod/api", "TimedOut", "probe timed out",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("table output missing %q:\n%s", want, out)
		}
	}
}

func TestWriteJSONRoundTrips(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, sampleResult(), FormatJSON); err != nil {
		t.Fatalf("Write: %v", err)
	}
	var decoded scheduler.PlanResult
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Success || len(decoded.Results) != 2 {
		t.Fatalf("decoded = success=%v results=%d, want failed with 2 results", decoded.Success, len(decoded.Results))
	}
}

func TestWriteYAML(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, sampleResult(), FormatYAML); err != nil {
		t.Fatalf("Write: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "success: false") || !strings.Contains(out, "name: db") {
		t.Fatalf("unexpected yaml output:\n%s", out)
	}
}

func TestParseFormat(t *testing.T) {
	cases := []struct {
		in   string
		want Format
		ok   bool
	}{
		{"", FormatTable, true},
		{"table", FormatTable, true},
		{"JSON", FormatJSON, true},
		{"yaml", FormatYAML, true},
		{"xml", "", false},
	}
	for _, tc := range cases {
		got, err := ParseFormat(tc.in)
		if tc.ok != (err == nil) || got != tc.want {
			t.Fatalf("ParseFormat(%q) = %q, %v", tc.in, got, err)
		}
	}
}

func TestWriteLayers(t *testing.T) {
	var buf bytes.Buffer
	layers := [][]depgraph.NodeID{
		{{Kind: "Namespace", Name: "prod"}},
		{{Kind: "Deployment", Name: "db", Namespace: "prod"}, {Kind: "Deployment", Name: "cache", Namespace: "prod"}},
	}
	if err := WriteLayers(&buf, layers); err != nil {
		t.Fatalf("WriteLayers: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "Namespace/prod") {
		t.Fatalf("layer 0 missing:\n%s", out)
	}
	if !strings.Contains(out, "Deployment/prod/db, Deployment/prod/cache") {
		t.Fatalf("layer 1 should list both nodes on one line:\n%s", out)
	}
}
