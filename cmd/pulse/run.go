package main

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/banshee-data/pulse.report/internal/acquire"
	"github.com/banshee-data/pulse.report/internal/config"
	"github.com/banshee-data/pulse.report/internal/db"
	"github.com/banshee-data/pulse.report/internal/debugroutes"
	"github.com/banshee-data/pulse.report/internal/fsutil"
	"github.com/banshee-data/pulse.report/internal/monitoring"
	"github.com/banshee-data/pulse.report/internal/ppg"
	"github.com/banshee-data/pulse.report/internal/publish"
	"github.com/banshee-data/pulse.report/internal/serialport"
	"github.com/banshee-data/pulse.report/internal/sink"
	"github.com/banshee-data/pulse.report/internal/timeutil"
)

type options struct {
	Port        string
	ConfigPath  string
	OutPath     string
	DBPath      string
	Dev         bool
	DevBPM      float64
	ReplayPath  string
	Listen      string
	GRPCListen  string
	NATSURL     string
	NATSSubject string
	Fsync       bool
	Truncate    bool

	// Injected by tests; zero values select the real implementations.
	Factory   serialport.Factory
	Clock     timeutil.Clock
	FS        fsutil.FileSystem
	Publisher publish.Publisher
}

// run performs one acquisition session and returns the process exit code:
// 0 after a requested stop or the end of a replay, 1 on any failure.
func run(ctx context.Context, opts options) int {
	if opts.Clock == nil {
		opts.Clock = timeutil.RealClock{}
	}
	if opts.FS == nil {
		opts.FS = fsutil.OSFileSystem{}
	}

	tuning, err := config.Load(opts.ConfigPath)
	if err != nil {
		monitoring.Errorf("failed to load config: %v", err)
		return 1
	}
	cfg, err := tuning.ToPipelineConfig()
	if err != nil {
		monitoring.Errorf("failed to load config: %v", err)
		return 1
	}

	pub := opts.Publisher
	if pub == nil && opts.NATSURL != "" {
		nc, err := publish.Connect(opts.NATSURL, "pulse")
		if err != nil {
			monitoring.Errorf("%v", err)
			return 1
		}
		defer nc.Drain()
		pub = nc
	}

	sourceName, openSource := sourceOpener(opts, tuning, cfg)

	stats := &monitoring.Stats{}
	tail := debugroutes.NewBroadcaster(0)
	defer tail.Close()
	reporters := ppg.MultiReporter{ppg.LogReporter{}, tail}

	var (
		store     *db.DB
		sessionID string
	)
	if opts.DBPath != "" {
		store, err = db.NewDB(opts.DBPath)
		if err != nil {
			monitoring.Errorf("failed to open database: %v", err)
			return 1
		}
		defer store.Close()

		sessionID, err = store.StartSession(sourceName, opts.Clock.Now())
		if err != nil {
			monitoring.Errorf("%v", err)
			return 1
		}
		reporters = append(reporters, db.NewHeartRateRecorder(store, sessionID, opts.Clock))
	}
	if pub != nil {
		reporters = append(reporters, publish.NewNATSReporter(pub, opts.NATSSubject, sessionID, opts.Clock))
	}

	health := monitoring.NewHealth()
	srvCtx, cancelServers := context.WithCancel(ctx)
	var wg sync.WaitGroup
	defer func() {
		cancelServers()
		wg.Wait()
	}()

	if opts.GRPCListen != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := health.Serve(srvCtx, opts.GRPCListen); err != nil {
				monitoring.Errorf("health server: %v", err)
			}
		}()
	}
	if opts.Listen != "" {
		mux, err := debugMux(stats, tuning, sessionID, tail, store)
		if err != nil {
			monitoring.Errorf("%v", err)
			return 1
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			serveHTTP(srvCtx, opts.Listen, mux)
		}()
	}

	session := &acquire.Session{
		OpenSource: openSource,
		OpenSink: func() (acquire.SinkCloser, error) {
			s, err := sink.OpenCSV(opts.FS, opts.OutPath, sink.Options{Truncate: opts.Truncate, Sync: opts.Fsync})
			if err != nil {
				return nil, err
			}
			return s, nil
		},
		Config:       cfg,
		Reporter:     reporters,
		Stats:        stats,
		Clock:        opts.Clock,
		ChunkSize:    tuning.GetChunkSize(),
		PollInterval: tuning.GetPollInterval(),
		Started: func() {
			health.SetServing(true)
			monitoring.Logf("acquiring from %s into %s", sourceName, opts.OutPath)
		},
	}
	out := session.Run(ctx)
	health.SetServing(false)

	snap := stats.Snapshot()
	if store != nil {
		end := db.SessionEnd{EndedAt: opts.Clock.Now(), Outcome: out.Reason.String(), Err: out.Err, Stats: snap}
		if err := store.FinishSession(sessionID, end); err != nil {
			monitoring.Warnf("%v", err)
		}
	}
	monitoring.Logf("%d lines, %d malformed, %d overflows, %d heart-rate estimates",
		snap.Lines, snap.Malformed, snap.Overflows, snap.Accepted)

	if out.Fatal() {
		monitoring.Errorf("fatal: %s", out)
		return 1
	}
	return 0
}

// sourceOpener picks the byte source: a replay file, the simulator or the
// serial port, in that order of precedence.
func sourceOpener(opts options, tuning *config.TuningConfig, cfg ppg.Config) (string, func() (acquire.SourceCloser, error)) {
	switch {
	case opts.ReplayPath != "":
		return "replay:" + opts.ReplayPath, func() (acquire.SourceCloser, error) {
			f, err := opts.FS.Open(opts.ReplayPath)
			if err != nil {
				return nil, err
			}
			return serialport.NewReplayPort(f), nil
		}
	case opts.Dev:
		return "simulated", func() (acquire.SourceCloser, error) {
			return serialport.NewSimulatedPort(serialport.SimOptions{
				SampleRateHz: cfg.SampleRateHz,
				HeartRateBPM: opts.DevBPM,
				ReadTimeout:  tuning.GetReadTimeout(),
				Clock:        opts.Clock,
			}), nil
		}
	default:
		factory := opts.Factory
		if factory == nil {
			factory = serialport.NewRealFactory()
		}
		return opts.Port, func() (acquire.SourceCloser, error) {
			p, err := factory.Open(opts.Port, tuning.PortOptions())
			if err != nil {
				return nil, err
			}
			return p, nil
		}
	}
}

func debugMux(stats *monitoring.Stats, tuning *config.TuningConfig, sessionID string, tail *debugroutes.Broadcaster, store *db.DB) (*http.ServeMux, error) {
	mux := http.NewServeMux()
	routes := &debugroutes.Routes{
		Stats:     stats,
		Config:    tuning,
		SessionID: sessionID,
		Tail:      tail,
	}
	if store != nil {
		routes.HeartRates = func(limit int) ([]db.HeartRateRecord, error) {
			return store.RecentHeartRates(sessionID, limit)
		}
		if err := store.AttachAdminRoutes(mux); err != nil {
			return nil, err
		}
	}
	routes.Attach(mux)
	return mux, nil
}

func serveHTTP(ctx context.Context, addr string, handler http.Handler) {
	server := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			monitoring.Errorf("failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		monitoring.Errorf("HTTP server shutdown error: %v", err)
		if err := server.Close(); err != nil {
			monitoring.Errorf("HTTP server force close error: %v", err)
		}
	}
}
