package main

import (
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/pario-ai/llmemo/pkg/cache/memory"
	"github.com/pario-ai/llmemo/pkg/client"
	"github.com/pario-ai/llmemo/pkg/config"
	"github.com/pario-ai/llmemo/pkg/history"
	"github.com/pario-ai/llmemo/pkg/logging"
	"github.com/pario-ai/llmemo/pkg/metrics"
	"github.com/pario-ai/llmemo/pkg/ollama"
)

type globalFlags struct {
	configPath string
	model      string
	endpoint   string
	logLevel   string
}

// app is the wired object graph shared by every command.
type app struct {
	cfg     *config.Config
	log     logging.Logger
	metrics *metrics.Collector
	store   *memory.Store
	journal *history.Journal
	client  *client.Client
}

func (f *globalFlags) loadConfig() (*config.Config, error) {
	cfg, err := config.LoadOrDefault(f.configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if f.model != "" {
		cfg.Model = f.model
	}
	if f.endpoint != "" {
		cfg.Endpoint = f.endpoint
	}
	if f.logLevel != "" {
		cfg.Log.Level = f.logLevel
	}
	return cfg, cfg.Validate()
}

// newApp builds the client stack. Logs go to logOut; the MCP command passes
// stderr so stdout stays a clean protocol stream.
func newApp(f *globalFlags, logOut io.Writer) (*app, error) {
	cfg, err := f.loadConfig()
	if err != nil {
		return nil, err
	}
	if logOut == nil {
		logOut = os.Stderr
	}
	log, err := logging.New(cfg.Log, logOut)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	a := &app{cfg: cfg, log: log, metrics: metrics.New("llmemo")}

	if cfg.Cache.Enabled {
		a.store = memory.New(memory.Options{
			MaxEntries:      cfg.Cache.MaxEntries,
			DefaultTTL:      cfg.Cache.TTL,
			CleanupInterval: cfg.Cache.CleanupInterval,
			AutoEvict:       cfg.Cache.AutoEvict,
			Logger:          log,
			Hooks:           a.metrics,
		})
	}

	if cfg.History.Enabled {
		a.journal, err = history.Open(cfg.History.DBPath, cfg.History.Keep)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("init history: %w", err)
		}
	}

	backend, err := ollama.New(cfg.Endpoint, &http.Client{})
	if err != nil {
		a.close()
		return nil, err
	}

	deps := client.Deps{Logger: log, Observer: a.metrics}
	if a.journal != nil {
		deps.History = a.journal
	}
	a.client, err = client.New(cfg, backend, a.store, deps)
	if err != nil {
		a.close()
		return nil, err
	}
	return a, nil
}

func (a *app) close() {
	if a.store != nil {
		_ = a.store.Close()
	}
	if a.journal != nil {
		if err := a.journal.Close(); err != nil {
			a.log.Warn("close history", logging.Fields{"error": err})
		}
	}
}
