// Command coordinator runs an authoritative lockstep session coordinator
// process, in either host-plus-client or dedicated-server mode. It wires
// pkg/coordinator.Host to a YAML-loaded pkg/simsettings.Config and an
// optional pkg/devws debug inspector, following the teacher's cli/app and
// cli/server command layout: one *cli.Command per run mode, a shared set
// of config/log flags, a zap logger built the same way
// cli/options.HandleLoggingParams does.
//
// There is no "run client" mode here: per spec.md's scope, the transport
// is a thin collaborator supplied externally, so a remote client is a
// library integration (pkg/coordinator.Client embedded in a host game),
// not a standalone process this binary launches.
package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/lockstep/coordinator/pkg/coordinator"
	"github.com/lockstep/coordinator/pkg/devws"
	"github.com/lockstep/coordinator/pkg/events"
	"github.com/lockstep/coordinator/pkg/metrics"
	"github.com/lockstep/coordinator/pkg/simsettings"
	"github.com/lockstep/coordinator/pkg/wire"
)

var configFlag = &cli.StringFlag{
	Name:  "config",
	Usage: "path to a simsettings YAML config file (defaults applied if omitted)",
}

var debugFlag = &cli.BoolFlag{
	Name:  "debug",
	Usage: "enable debug-level logging",
}

var devInspectorFlag = &cli.StringFlag{
	Name:  "dev-inspector",
	Usage: "address to serve the read-only WebSocket event inspector on, e.g. :6060 (disabled if empty)",
}

var metricsAddrFlag = &cli.StringFlag{
	Name:  "metrics-addr",
	Usage: "address to serve /metrics on (disabled if empty)",
}

func main() {
	app := &cli.App{
		Name:  "coordinator",
		Usage: "deterministic lockstep simulation coordinator",
		Commands: []*cli.Command{
			{
				Name:   "host",
				Usage:  "run host-plus-client mode: authoritative session with a colocated local player",
				Flags:  []cli.Flag{configFlag, debugFlag, devInspectorFlag, metricsAddrFlag},
				Action: runHost(simsettings.ModeHost),
			},
			{
				Name:   "dedicated",
				Usage:  "run dedicated-server mode: authoritative session with no local player",
				Flags:  []cli.Flag{configFlag, debugFlag, devInspectorFlag, metricsAddrFlag},
				Action: runHost(simsettings.ModeDedicated),
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runHost(mode simsettings.ServerMode) cli.ActionFunc {
	return func(ctx *cli.Context) error {
		log, err := buildLogger(ctx)
		if err != nil {
			return cli.Exit(err, 1)
		}
		defer log.Sync() //nolint:errcheck

		cfg, err := loadConfig(ctx)
		if err != nil {
			return cli.Exit(err, 1)
		}
		cfg.Connection.ServerMode = mode

		metrics.Register()

		inspector := devws.NewInspector(log)
		ms := &metricsSink{}
		sink := multiSink(inspector, ms)

		if addr := ctx.String(devInspectorFlag.Name); addr != "" {
			mux := http.NewServeMux()
			mux.Handle("/", inspector)
			go func() {
				if err := http.ListenAndServe(addr, mux); err != nil {
					log.Warn("dev inspector server stopped", zap.Error(err))
				}
			}()
			log.Info("dev inspector listening", zap.String("addr", addr))
		}
		if addr := ctx.String(metricsAddrFlag.Name); addr != "" {
			go serveMetrics(addr, log)
		}

		h, err := coordinator.NewHost(cfg, nil, sink, log)
		if err != nil {
			return cli.Exit(err, 1)
		}
		ms.host = h
		defer h.Shutdown() //nolint:errcheck

		runScheduler(h, cfg.Simulation.TickTimestep, log)
		return nil
	}
}

// runScheduler drives h.Step once per tick until interrupted, the same
// fixed-timestep loop simulation.rs's FixedPostUpdate schedule implements
// declaratively in Bevy.
func runScheduler(h *coordinator.Host, tickTimestep time.Duration, log *zap.Logger) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	ticker := time.NewTicker(tickTimestep)
	defer ticker.Stop()

	log.Info("coordinator running", zap.Duration("tick_timestep", tickTimestep))
	for {
		select {
		case <-stop:
			log.Info("coordinator shutting down")
			return
		case <-ticker.C:
			h.Step(0)
		}
	}
}

func loadConfig(ctx *cli.Context) (simsettings.Config, error) {
	path := ctx.String(configFlag.Name)
	if path == "" {
		return simsettings.Default(), nil
	}
	return simsettings.LoadFile(path)
}

// buildLogger mirrors cli/options.HandleLoggingParams: a production zap
// config with caller/stacktrace disabled and console encoding, bumped to
// debug level by the --debug flag.
func buildLogger(ctx *cli.Context) (*zap.Logger, error) {
	cc := zap.NewProductionConfig()
	cc.DisableCaller = true
	cc.DisableStacktrace = true
	cc.Encoding = "console"
	cc.EncoderConfig.EncodeDuration = zapcore.StringDurationEncoder
	cc.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	cc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if ctx.Bool(debugFlag.Name) {
		cc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return cc.Build()
}

func serveMetrics(addr string, log *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	log.Info("metrics listening", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Warn("metrics server stopped", zap.Error(err))
	}
}

// metricsSink is an events.Sink that updates Prometheus gauges/counters; it
// is composed alongside the dev inspector via multiSink. host is filled in
// once coordinator.NewHost returns, since the sink must exist before the
// host that owns the data it reports.
type metricsSink struct {
	host *coordinator.Host
}

func (m *metricsSink) OnTickUpdate(e events.TickUpdate) {
	metrics.SetCurrentTick(uint32(e.Tick))
	if m.host != nil {
		metrics.SetConnectedPeers(m.host.ConnectedPeers())
		metrics.SetGateFailStreak(m.host.GateFailStreak())
	}
	if data, err := wire.EncodeBundle(e.Tick, e.Bundle); err == nil {
		metrics.AddBroadcastBytes(len(data))
	}
}
func (m *metricsSink) OnStateChanged(e events.SimulationStateChanged) {
	metrics.SetSessionState(e.New)
}
func (m *metricsSink) OnClientDisconnect(events.ClientDisconnect) {
	if m.host != nil {
		metrics.SetConnectedPeers(m.host.ConnectedPeers())
	}
}
func (m *metricsSink) OnClientReconnect(events.ClientReconnect) {}
func (m *metricsSink) OnSessionFault(events.SessionFault)       {}

// multiSink fans every outbound event out to each of its constituent sinks.
type multiSinkT []events.Sink

func multiSink(sinks ...events.Sink) events.Sink {
	return multiSinkT(sinks)
}

func (m multiSinkT) OnTickUpdate(e events.TickUpdate) {
	for _, s := range m {
		s.OnTickUpdate(e)
	}
}
func (m multiSinkT) OnStateChanged(e events.SimulationStateChanged) {
	for _, s := range m {
		s.OnStateChanged(e)
	}
}
func (m multiSinkT) OnClientDisconnect(e events.ClientDisconnect) {
	for _, s := range m {
		s.OnClientDisconnect(e)
	}
}
func (m multiSinkT) OnClientReconnect(e events.ClientReconnect) {
	for _, s := range m {
		s.OnClientReconnect(e)
	}
}
func (m multiSinkT) OnSessionFault(e events.SessionFault) {
	for _, s := range m {
		s.OnSessionFault(e)
	}
}
