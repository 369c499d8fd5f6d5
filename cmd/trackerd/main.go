package main

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"
	"tribunal-tracker/lib/configutil"
	configsqlite "tribunal-tracker/lib/configutil/sqlite"
	"tribunal-tracker/lib/scrapers/siisej"
	"tribunal-tracker/lib/serviceutil"
	"tribunal-tracker/lib/telemetry"
	"tribunal-tracker/services/notify"
	"tribunal-tracker/services/tracker"
	trackerdb "tribunal-tracker/services/tracker/db"
)

type Config struct {
	Database configsqlite.Struct `json:"database"`
	// Port serves the health and stats endpoints.
	Port int `json:"port"`

	// SearchUrl/CourtsUrl override the court site endpoints, mainly
	// for staging against a local fixture server.
	SearchUrl string `json:"search_url"`
	CourtsUrl string `json:"courts_url"`

	// durations are seconds
	BatchIntervalSeconds int `json:"batch_interval_seconds"`
	BatchDeadlineSeconds int `json:"batch_deadline_seconds"`
	FetchSpacingSeconds  int `json:"fetch_spacing_seconds"`
	Workers              int `json:"workers"`
	TrialDays            int `json:"trial_days"`

	Telegram notify.TelegramConfig `json:"telegram"`
	Smtp     notify.SmtpConfig     `json:"smtp"`
}

func trackerConfig(config Config) tracker.Config {
	c := tracker.DefaultConfig()
	if config.BatchIntervalSeconds > 0 {
		c.BatchInterval = time.Duration(config.BatchIntervalSeconds) * time.Second
	}
	if config.BatchDeadlineSeconds > 0 {
		c.BatchDeadline = time.Duration(config.BatchDeadlineSeconds) * time.Second
	}
	if config.FetchSpacingSeconds > 0 {
		c.MinFetchSpacing = time.Duration(config.FetchSpacingSeconds) * time.Second
	}
	if config.Workers > 0 {
		c.Workers = config.Workers
	}
	if config.TrialDays > 0 {
		c.TrialLength = time.Duration(config.TrialDays) * time.Hour * 24
	}
	return c
}

func notifier(config Config) notify.Notifier {
	var channels notify.Multi
	if config.Telegram.Token != "" {
		channels = append(channels, notify.NewTelegramNotifier(config.Telegram))
	}
	if config.Smtp.Server != "" {
		channels = append(channels, notify.NewEmailNotifier(config.Smtp))
	}
	if len(channels) == 0 {
		slog.Warn("no notification channels configured, logging notifications instead")
		return notify.LogNotifier{}
	}
	return channels
}

func main() {
	config, err := configutil.ReadConfig[Config]("config.json5")
	if err != nil {
		serviceutil.Fatal("failed to read config", err)
	}
	if config.Port == 0 {
		config.Port = 8310
	}

	ctx := serviceutil.SignalContext()

	telemetry.SetupFromEnv(ctx, "cmd/trackerd")
	telemetry.InstrumentPerfStats(ctx)

	slog.Info("opening database...")
	sqlite, err := config.Database.OpenDB(trackerdb.Schema)
	if err != nil {
		serviceutil.Fatal("failed to open database", err)
	}

	var siisejOptions []siisej.Option
	if config.SearchUrl != "" {
		siisejOptions = append(siisejOptions, siisej.WithSearchUrl(config.SearchUrl))
	}
	if config.CourtsUrl != "" {
		siisejOptions = append(siisejOptions, siisej.WithCourtsUrl(config.CourtsUrl))
	}
	client := siisej.NewClient(siisejOptions...)

	service := tracker.NewService(
		tracker.NewSqliteStore(sqlite),
		tracker.NewSiteFetcher(client),
		notifier(config),
		trackerConfig(config),
	)
	service.StartDaemons(ctx)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("GET /stats", func(w http.ResponseWriter, r *http.Request) {
		stats, err := service.Stats(r.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(stats)
	})
	go serviceutil.StartHttpServer(config.Port, mux)

	<-ctx.Done()
}
