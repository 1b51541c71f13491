package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/mfadel/brontes/internal/api"
	"github.com/mfadel/brontes/internal/config"
	"github.com/mfadel/brontes/internal/model"
	"github.com/mfadel/brontes/internal/remote"
	"github.com/mfadel/brontes/internal/store"
	"github.com/mfadel/brontes/internal/worker"
)

func main() {
	cfg := config.Load()
	logger := config.NewLogger(os.Stdout, cfg.LogLevel)

	workerID := model.NewID()
	logger.Info("brontes: starting",
		"worker_id", workerID,
		"server_url", cfg.ServerURL,
		"listen_addr", cfg.ListenAddr,
	)

	var journal store.Journal
	if cfg.JournalPath != "" {
		j, err := store.NewSQLiteJournal(cfg.JournalPath)
		if err != nil {
			log.Fatalf("failed to open journal: %v", err)
		}
		defer j.Close()
		journal = j
	}

	client := remote.NewHTTPClient(cfg.ServerURL, cfg.AuthToken, workerID, logger)
	sup := worker.NewSupervisor(client, worker.Options{
		MaxPollBatch: cfg.MaxPollBatch,
		BackoffCap:   cfg.BackoffCap,
		Journal:      journal,
	}, logger)

	specs := builtinSpecs()
	if cfg.WorkerFile != "" {
		overrides, err := config.LoadOverrides(cfg.WorkerFile)
		if err != nil {
			log.Fatalf("failed to load worker file: %v", err)
		}
		specs = applyOverrides(specs, overrides)
	}
	for _, spec := range specs {
		if err := sup.Register(spec); err != nil {
			log.Fatalf("failed to register %q: %v", spec.TaskType, err)
		}
	}

	if err := sup.Start(); err != nil {
		log.Fatalf("failed to start supervisor: %v", err)
	}

	srv := api.NewServer(cfg.ListenAddr, sup, journal, logger)
	if err := srv.Run(); err != nil {
		log.Fatalf("server error: %v", err)
	}

	sup.Stop(cfg.ShutdownGrace)
	logger.Info("brontes: stopped")
}

// builtinSpecs returns the executors compiled into this binary. Deployments
// tune them through the worker file without recompiling.
func builtinSpecs() []worker.Spec {
	return []worker.Spec{
		{
			TaskType:     "echo",
			Handler:      echoHandler,
			Concurrency:  4,
			PollInterval: time.Second,
		},
		{
			TaskType:            "sleep",
			Handler:             sleepHandler,
			Concurrency:         2,
			PollInterval:        time.Second,
			LeaseExtendEnabled:  true,
			LeaseExtendInterval: 10 * time.Second,
		},
	}
}

// applyOverrides merges worker-file tuning into the built-in specs. Only
// fields the file sets are replaced; unknown task types are ignored.
func applyOverrides(specs []worker.Spec, overrides map[string]config.Override) []worker.Spec {
	out := make([]worker.Spec, 0, len(specs))
	for _, spec := range specs {
		o, ok := overrides[spec.TaskType]
		if !ok {
			out = append(out, spec)
			continue
		}
		if o.Concurrency > 0 {
			spec.Concurrency = o.Concurrency
		}
		if o.PollInterval > 0 {
			spec.PollInterval = o.PollInterval
		}
		if o.PollTimeout > 0 {
			spec.PollTimeout = o.PollTimeout
		}
		if o.LeaseExtend != nil {
			spec.LeaseExtendEnabled = *o.LeaseExtend
		}
		if o.LeaseExtendInterval > 0 {
			spec.LeaseExtendInterval = o.LeaseExtendInterval
		}
		out = append(out, spec)
	}
	return out
}

// echoHandler completes immediately, returning the item's input as output.
func echoHandler(ctx context.Context, item *model.WorkItem) (model.Outcome, error) {
	return model.Completed(item.Input), nil
}

// sleepHandler pauses for the duration named by the "duration_ms" input,
// honoring cancellation. Useful for exercising lease extension end to end.
func sleepHandler(ctx context.Context, item *model.WorkItem) (model.Outcome, error) {
	ms, _ := item.Input["duration_ms"].(float64)
	select {
	case <-time.After(time.Duration(ms) * time.Millisecond):
		return model.Completed(nil), nil
	case <-ctx.Done():
		return model.Outcome{}, ctx.Err()
	}
}
