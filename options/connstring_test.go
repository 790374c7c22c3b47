package options

import (
	"strings"
	"testing"
)

// Exercises a quoted string value alongside bare integer values.
func TestParseConnectionsOptionParseSuccess(t *testing.T) {
	configs, err := ParseConnections(`tcp(host="h1",port=4228,timeout=1500)`, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(configs) != 1 || configs[0].Name != "tcp" {
		t.Fatalf("unexpected configs: %+v", configs)
	}
	opt := configs[0].Options
	if got := opt.String("host", ""); got != "h1" {
		t.Fatalf("host = %q", got)
	}
	if got := opt.Int("port", 0); got != 4228 {
		t.Fatalf("port = %d", got)
	}
	if got := opt.Int("timeout", 0); got != 1500 {
		t.Fatalf("timeout = %d", got)
	}
}

func TestParseConnectionsUnknownProtocol(t *testing.T) {
	_, err := ParseConnections(`bogus(a=1)`, nil)
	if err == nil {
		t.Fatal("expected error for unknown protocol name")
	}
}

func TestParseConnectionsMultipleProtocols(t *testing.T) {
	configs, err := ParseConnections(`tcp(host="a"),cloud(region=eu-west-1)`, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(configs) != 2 || configs[0].Name != "tcp" || configs[1].Name != "cloud" {
		t.Fatalf("unexpected configs: %+v", configs)
	}
}

func TestParseConnectionsExpandsVariables(t *testing.T) {
	vars := NewVariables()
	vars.Put("myhost", "10.0.0.5")
	configs, err := ParseConnections(`tcp(host=$myhost$)`, vars)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := configs[0].Options.String("host", ""); got != "10.0.0.5" {
		t.Fatalf("host = %q", got)
	}
}

func TestParseOptionsEscapedQuotedValue(t *testing.T) {
	table, err := ParseOptions(`msg="a \"quoted\" value",n=1`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := table.String("msg", ""); got != `a "quoted" value` {
		t.Fatalf("msg = %q", got)
	}
}

func TestSizeAndTimespanUnits(t *testing.T) {
	table, _ := ParseOptions(`q=5MB,t=2m,plain=10`)
	if got := table.Size("q", 0); got != 5*1024*1024 {
		t.Fatalf("q = %d", got)
	}
	if got := table.Timespan("t", 0); got.Milliseconds() != 120000 {
		t.Fatalf("t = %v", got)
	}
	if got := table.Size("plain", 0); got != 10*1024 {
		t.Fatalf("plain (default KB unit) = %d", got)
	}
}

func TestUnknownOptionKeyIsCallerDetected(t *testing.T) {
	// ParseOptions itself never rejects unknown keys (that is protocol
	// schema validation, owned by protocol.Base.Initialize); it should
	// still round-trip an arbitrary key so the caller can see it.
	table, err := ParseOptions(`bogus=1`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !table.Has("bogus") {
		t.Fatal("expected bogus key to be present for later validation")
	}
	if !strings.Contains(strings.Join(table.Keys(), ","), "bogus") {
		t.Fatal("expected Keys() to include bogus")
	}
}
