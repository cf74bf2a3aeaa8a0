// Package app wires together configuration, the API client and the local
// store into a single Deps struct that commands receive at runtime.
package app

import (
	"fmt"
	"log/slog"

	"github.com/derickschaefer/bazi/internal/baziapi"
	"github.com/derickschaefer/bazi/internal/config"
	"github.com/derickschaefer/bazi/internal/form"
	"github.com/derickschaefer/bazi/internal/store"
)

// Deps holds all runtime dependencies injected into command Run functions.
// The store is opened lazily because most commands never touch it.
type Deps struct {
	Config   *config.Config
	Client   *baziapi.Client
	Endpoint baziapi.Endpoint
	Logger   *slog.Logger
	Store    *store.Store
}

// New builds a Deps from resolved config.
func New(cfg *config.Config, logger *slog.Logger) *Deps {
	if logger == nil {
		logger = slog.Default()
	}
	client := baziapi.NewClient(
		cfg.Timeout,
		cfg.Rate,
		cfg.Debug,
	)
	return &Deps{
		Config:   cfg,
		Client:   client,
		Endpoint: baziapi.Endpoint{BaseURL: cfg.BaseURL},
		Logger:   logger,
	}
}

// Controller binds a form controller to view using the configured endpoint.
func (d *Deps) Controller(view form.View) *form.Controller {
	return form.NewController(d.Client, view, d.Endpoint, d.Logger)
}

// RequireStore opens the local database on first use. Commands that need
// it call this and then read d.Store.
func (d *Deps) RequireStore() error {
	if d.Store != nil {
		return nil
	}
	if d.Config.DBPath == "" {
		return fmt.Errorf("no database path configured (set db_path in config.json or %s)", config.EnvDBPath)
	}
	s, err := store.Open(d.Config.DBPath)
	if err != nil {
		return err
	}
	d.Store = s
	return nil
}

// Close releases the store if it was opened.
func (d *Deps) Close() error {
	if d.Store == nil {
		return nil
	}
	err := d.Store.Close()
	d.Store = nil
	return err
}
