// Command siclient is a minimal driver for the SmartInspect client
// library: it parses a connections string, brings up the named
// protocol(s), optionally serves metrics/health, and emits one LogEntry
// per line read from stdin.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/Code-Partners/smartinspect-java-library-sub003/cloudproto"
	"github.com/Code-Partners/smartinspect-java-library-sub003/config"
	"github.com/Code-Partners/smartinspect-java-library-sub003/observability"
	"github.com/Code-Partners/smartinspect-java-library-sub003/options"
	"github.com/Code-Partners/smartinspect-java-library-sub003/packet"
	"github.com/Code-Partners/smartinspect-java-library-sub003/protocol"
	"github.com/Code-Partners/smartinspect-java-library-sub003/tcp"
)

var (
	connections string
	appName     string
	metricsAddr string
	healthAddr  string
	serveHTTP   bool
)

func main() {
	cfg := config.DefaultConfig()

	flag.StringVar(&connections, "connections", cfg.DefaultConnectionsString, `connections string, e.g. tcp(host="localhost",port=4228)`)
	flag.StringVar(&appName, "app", "siclient", "application name sent in the LogHeader")
	flag.StringVar(&metricsAddr, "metrics-addr", cfg.MetricsAddress, "Prometheus metrics listen address")
	flag.StringVar(&healthAddr, "health-addr", cfg.HealthAddress, "health check listen address")
	flag.BoolVar(&serveHTTP, "serve-http", false, "serve /metrics and /health")
	flag.Parse()

	logger := observability.NewLogger("siclient", "1.0.0", os.Stdout)
	metrics := observability.NewMetrics()

	if shutdown, err := observability.InitTracing(context.Background(), "siclient"); err == nil {
		defer shutdown(context.Background())
	}

	protos, err := buildProtocols(connections, logger, metrics)
	if err != nil {
		logger.Fatal(err, "failed to build protocols from connections string")
	}

	if serveHTTP {
		health := observability.NewHealthChecker("1.0.0")
		for i, p := range protos {
			p := p
			health.RegisterCheck(fmt.Sprintf("protocol-%d", i), observability.ProtocolStateCheck(p.Name(), func() string {
				return p.Base.State().String()
			}))
		}
		go serveMetricsAndHealth(metrics, health)
	}

	for _, p := range protos {
		if err := p.Base.Connect(); err != nil {
			logger.ConnectFailed(p.Name(), connections, err)
		}
		defer p.Base.Close()
		if p.stopBkg != nil {
			defer p.stopBkg()
		}
	}

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		entry := packet.NewLogEntry(packet.LevelMessage)
		entry.AppName = appName
		entry.Title = scanner.Text()
		now := time.Now()
		entry.TimestampSec = uint32(now.Unix())
		entry.TimestampUs = uint32(now.Nanosecond() / 1000)

		for _, p := range protos {
			if err := p.Base.WritePacket(entry); err != nil {
				logger.Error(err, "write failed")
			} else {
				metrics.RecordPacketWritten(p.Name())
			}
		}
	}
}

// namedProtocol pairs a Base with the transport name used for logging and
// metrics labels, plus an optional stop func for a background task (the
// cloud protocol's age-triggered chunk flusher) tied to this protocol's
// lifetime.
type namedProtocol struct {
	Base    *protocol.Base
	name    string
	stopBkg func()
}

func (p *namedProtocol) Name() string { return p.name }

func buildProtocols(connString string, logger *observability.Logger, metrics *observability.Metrics) ([]*namedProtocol, error) {
	configs, err := options.ParseConnections(connString, nil)
	if err != nil {
		return nil, err
	}

	var out []*namedProtocol
	for _, cfg := range configs {
		switch cfg.Name {
		case "tcp":
			t := tcp.NewProtocol()
			base := protocol.NewBase(t)
			if err := base.Initialize(cfg.Options); err != nil {
				return nil, err
			}
			base.SetErrorListener(protocol.ErrorListenerFunc(func(err error) {
				logger.Error(err, "async transport error")
			}))
			out = append(out, &namedProtocol{Base: base, name: t.Name()})

		case "cloud":
			c := cloudproto.NewProtocol()
			base := protocol.NewBase(c)
			c.OnReply(func(r *protocol.ReplyError) {
				logger.ReplyClassified(replyKindString(r.Kind), r.Message)
				metrics.RecordReply(replyKindString(r.Kind))
				if r.Kind == protocol.ReplyReconnectForbidden {
					base.Disable()
				}
			})
			if err := base.Initialize(cfg.Options); err != nil {
				return nil, err
			}
			base.SetErrorListener(protocol.ErrorListenerFunc(func(err error) {
				logger.Error(err, "async transport error")
			}))
			stop := c.StartAgeFlusher(base)
			out = append(out, &namedProtocol{Base: base, name: c.Name(), stopBkg: stop})

		default:
			return nil, fmt.Errorf("siclient: protocol %q is not implemented by this client", cfg.Name)
		}
	}
	return out, nil
}

func replyKindString(k protocol.ReplyKind) string {
	switch k {
	case protocol.ReplyWarning:
		return "warning"
	case protocol.ReplyReconnectAllowed:
		return "reconnect_allowed"
	case protocol.ReplyReconnectForbidden:
		return "reconnect_forbidden"
	default:
		return "unknown"
	}
}

func serveMetricsAndHealth(metrics *observability.Metrics, health *observability.HealthChecker) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/health", health.Handler())

	go http.ListenAndServe(metricsAddr, mux)
	http.ListenAndServe(healthAddr, mux)
}
