package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/fabsight-data/wafer.report/internal/analytics"
	"github.com/fabsight-data/wafer.report/internal/api"
	"github.com/fabsight-data/wafer.report/internal/config"
	"github.com/fabsight-data/wafer.report/internal/fsutil"
	"github.com/fabsight-data/wafer.report/internal/plotout"
	"github.com/fabsight-data/wafer.report/internal/version"
)

var (
	listen     = flag.String("listen", ":8080", "Listen address")
	configPath = flag.String("config", "", "Tuning config file (JSON); defaults baked in when empty")
	plotsDir   = flag.String("plots-dir", "plots", "Directory for exported PNG plots")
	disableML  = flag.Bool("disable-ml", false, "Disable anomaly detection endpoints")
	sessionTTL = flag.Duration("session-ttl", api.DefaultSessionTTL, "Idle session lifetime")
)

func main() {
	flag.Parse()

	if *listen == "" {
		log.Fatal("Listen address is required")
	}

	var tuning *config.TuningConfig
	if *configPath != "" {
		var err error
		tuning, err = config.LoadTuningConfig(*configPath)
		if err != nil {
			log.Fatalf("failed to load tuning config: %v", err)
		}
	} else {
		tuning = config.MustLoadDefaultConfig()
	}
	if err := tuning.Validate(); err != nil {
		log.Fatalf("invalid tuning config: %v", err)
	}

	var engine *analytics.Engine
	if *disableML {
		log.Printf("anomaly detection disabled")
	} else {
		engine = analytics.NewEngine(
			analytics.WithClassifierThresholds(tuning.ClassifierThresholds()),
			analytics.WithForestParams(tuning.GetForestTrees(), tuning.GetForestSubsample(), tuning.GetForestSeed()),
		)
	}

	server := api.NewWebServer(api.Config{
		Addr:     *listen,
		Tuning:   tuning,
		Engine:   engine,
		Store:    api.NewStore(nil, *sessionTTL),
		Exporter: plotout.NewExporter(fsutil.OSFileSystem{}, *plotsDir),
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Printf("wafer.report %s (%s, built %s)", version.Version, version.GitSHA, version.BuildTime)
	start := time.Now()
	if err := server.Start(ctx); err != nil {
		log.Fatalf("server error: %v", err)
	}
	log.Printf("server stopped after %s", time.Since(start).Round(time.Second))
}
