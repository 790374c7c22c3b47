// Package cloudproto implements the cloud protocol: a TLS-wrapped
// extension of tcp that authenticates with a write key, bundles outgoing
// packets into byte/age-bounded chunks, groups them under a rotating
// virtual-file UUID, and classifies server replies into
// OK/Warning/ReconnectAllowed/ReconnectForbidden.
package cloudproto

import (
	"fmt"
	"strings"

	"github.com/Code-Partners/smartinspect-java-library-sub003/options"
)

const (
	kib = 1024
	mib = 1024 * 1024

	minChunkMaxSize = 10 * kib
	maxChunkMaxSize = 395 * kib
	minChunkMaxAge  = 500

	minVirtualFileSize = 1 * mib
	maxVirtualFileSize = 50 * mib
)

// CustomLabel is one "key=value" component of the customlabels option.
type CustomLabel struct {
	Key   string
	Value string
}

// Options holds the cloud protocol's option group, on top of the common
// options protocol.CommonOptions already covers.
type Options struct {
	WriteKey     string
	CustomLabels []CustomLabel
	Region       string

	ChunkingEnabled bool
	ChunkMaxSize    int64
	ChunkMaxAgeMs   int64

	VirtualFileMaxSize int64
	Rotate             options.Rotate

	TLSEnabled       bool
	TLSCertLocation  string // "resource" or "filepath"
	TLSCertFilepath  string
	TLSCertPassword  string

	Host string
	Port int
}

// DefaultOptions returns SmartInspect Cloud's documented defaults.
func DefaultOptions() Options {
	return Options{
		Region:             "eu-central-1",
		ChunkingEnabled:    true,
		ChunkMaxSize:       maxChunkMaxSize,
		ChunkMaxAgeMs:      1000,
		VirtualFileMaxSize: minVirtualFileSize,
		Rotate:             options.RotateNone,
		TLSEnabled:         true,
		TLSCertLocation:    "resource",
		Port:               4228,
	}
}

// AllowedKeys lists the option keys cloudproto recognizes beyond the
// common set, including the host/port/timeout keys it shares with tcp.
func (o *Options) AllowedKeys() []string {
	return []string{
		"writekey", "customlabels", "region",
		"chunking.enabled", "chunking.maxsize", "chunking.maxagems",
		"maxsize", "rotate",
		"tls.enabled", "tls.certificate.location", "tls.certificate.filepath", "tls.certificate.password",
		"host", "port", "timeout",
	}
}

// Load applies the cloud-specific keys from table, clamping size/age
// options to the bounds SmartInspect Cloud documents.
func (o *Options) Load(table *options.Table) error {
	o.WriteKey = table.String("writekey", o.WriteKey)
	o.Region = table.String("region", o.Region)
	o.Host = table.String("host", o.Host)
	o.Port = table.Int("port", o.Port)

	o.ChunkingEnabled = table.Bool("chunking.enabled", o.ChunkingEnabled)
	o.ChunkMaxSize = clamp(table.Size("chunking.maxsize", o.ChunkMaxSize), minChunkMaxSize, maxChunkMaxSize)
	o.ChunkMaxAgeMs = int64(table.Int("chunking.maxagems", int(o.ChunkMaxAgeMs)))
	if o.ChunkMaxAgeMs < minChunkMaxAge {
		o.ChunkMaxAgeMs = minChunkMaxAge
	}

	o.VirtualFileMaxSize = clamp(table.Size("maxsize", o.VirtualFileMaxSize), minVirtualFileSize, maxVirtualFileSize)
	o.Rotate = table.Rotate("rotate", o.Rotate)

	o.TLSEnabled = table.Bool("tls.enabled", o.TLSEnabled)
	o.TLSCertLocation = table.String("tls.certificate.location", o.TLSCertLocation)
	o.TLSCertFilepath = table.String("tls.certificate.filepath", o.TLSCertFilepath)
	o.TLSCertPassword = table.String("tls.certificate.password", o.TLSCertPassword)

	labels, err := parseCustomLabels(table.String("customlabels", ""))
	if err != nil {
		return err
	}
	o.CustomLabels = labels
	return nil
}

func clamp(v, min, max int64) int64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// parseCustomLabels parses "k1=v1;k2=v2;...", rejecting any key or value
// outside [1,100] characters and capping the result at 5 entries.
func parseCustomLabels(s string) ([]CustomLabel, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ";")
	if len(parts) > 5 {
		return nil, fmt.Errorf("cloudproto: customlabels allows at most 5 entries, got %d", len(parts))
	}
	out := make([]CustomLabel, 0, len(parts))
	for _, part := range parts {
		kv := strings.SplitN(part, "=", 2)
		if len(kv) != 2 {
			return nil, fmt.Errorf("cloudproto: malformed customlabels component %q", part)
		}
		key, value := kv[0], kv[1]
		if len(key) < 1 || len(key) > 100 || len(value) < 1 || len(value) > 100 {
			return nil, fmt.Errorf("cloudproto: customlabels component %q outside [1,100] characters", part)
		}
		out = append(out, CustomLabel{Key: key, Value: value})
	}
	return out, nil
}
