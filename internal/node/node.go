// Copyright 2024 Greymass Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package node wires the ledger, oracle engine, storage, and metrics
// listener into a runnable service
package node

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aaroncox/drops/database"
	"github.com/aaroncox/drops/event"
	"github.com/aaroncox/drops/internal/config"
	"github.com/aaroncox/drops/ledger"
	"github.com/aaroncox/drops/market"
	"github.com/aaroncox/drops/oracle"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// localAuthorizer trusts the process boundary. Authority and account
// existence are enforced by whatever fronts this service; the ledger
// checks still run so embedding callers can swap in a real implementation.
type localAuthorizer struct{}

func (localAuthorizer) RequireAuth(account string) error {
	if account == "" {
		return errors.New("account name required")
	}
	return nil
}

func (localAuthorizer) IsAccount(account string) bool {
	return account != ""
}

// logTreasury records currency movements in the log. A deployment with a
// real settlement backend replaces this with its own Treasury.
type logTreasury struct {
	logger *slog.Logger
}

func (t *logTreasury) Transfer(
	from, to string,
	quantity market.Asset,
	memo string,
) error {
	t.logger.Info(
		"treasury transfer",
		"component", "treasury",
		"from", from,
		"to", to,
		"quantity", quantity.String(),
		"memo", memo,
	)
	return nil
}

// OpenLedger builds a ledger against the configured data directory for
// one-shot administrative commands. The caller closes the returned
// database.
func OpenLedger(
	cfg *config.Config,
	logger *slog.Logger,
) (*ledger.Ledger, *database.Database, error) {
	epochPhase, err := cfg.EpochPhaseDuration()
	if err != nil {
		return nil, nil, err
	}
	db, err := database.New(&database.Config{
		Logger:  logger,
		DataDir: cfg.DataDir,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("opening database: %w", err)
	}
	l := ledger.New(ledger.Config{
		Logger:         logger,
		Database:       db,
		Exchange:       market.NewExchange(cfg.ExchangeStorageBytes, market.NewAsset(cfg.ExchangeCurrency)),
		Treasury:       &logTreasury{logger: logger},
		Authorizer:     localAuthorizer{},
		LedgerAccount:  cfg.LedgerAccount,
		ReserveAccount: cfg.ReserveAccount,
		SystemAccount:  cfg.SystemAccount,
		EpochPhase:     epochPhase,
		AdvanceCap:     cfg.AdvanceCap,
	})
	return l, db, nil
}

func Run(cfg *config.Config, logger *slog.Logger) error {
	logger.Debug(fmt.Sprintf("config: %+v", cfg), "component", "node")

	epochPhase, err := cfg.EpochPhaseDuration()
	if err != nil {
		return err
	}
	advanceInterval, err := cfg.AdvanceIntervalDuration()
	if err != nil {
		return err
	}
	shutdownTimeout := 30 * time.Second
	if cfg.ShutdownTimeout != "" {
		shutdownTimeout, err = time.ParseDuration(cfg.ShutdownTimeout)
		if err != nil {
			return fmt.Errorf("invalid shutdown timeout: %w", err)
		}
	}

	db, err := database.New(&database.Config{
		Logger:       logger,
		PromRegistry: prometheus.DefaultRegisterer,
		DataDir:      cfg.DataDir,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	eventBus := event.NewEventBus(prometheus.DefaultRegisterer, logger)
	defer eventBus.Stop()
	exchange := market.NewExchange(
		cfg.ExchangeStorageBytes,
		market.NewAsset(cfg.ExchangeCurrency),
	)
	auth := localAuthorizer{}
	l := ledger.New(ledger.Config{
		Logger:         logger,
		Database:       db,
		EventBus:       eventBus,
		Exchange:       exchange,
		Treasury:       &logTreasury{logger: logger},
		Authorizer:     auth,
		PromRegistry:   prometheus.DefaultRegisterer,
		LedgerAccount:  cfg.LedgerAccount,
		ReserveAccount: cfg.ReserveAccount,
		SystemAccount:  cfg.SystemAccount,
		EpochPhase:     epochPhase,
		AdvanceCap:     cfg.AdvanceCap,
	})
	engine := oracle.NewEngine(oracle.Config{
		Logger:     logger,
		Database:   db,
		EventBus:   eventBus,
		Authorizer: auth,
	})

	// Try to finalize the prior epoch whenever a new one opens. Finalize
	// is idempotent and fails harmlessly while reveals are outstanding.
	eventBus.SubscribeFunc(
		event.EpochAdvanceEventType,
		func(evt event.Event) {
			data, ok := evt.Data.(event.EpochAdvanceEvent)
			if !ok || data.Number < 2 {
				return
			}
			if err := engine.Finalize(data.Number - 1); err != nil {
				logger.Debug(
					"previous epoch not yet finalizable",
					"component", "node",
					"epoch", data.Number-1,
					"error", err,
				)
			}
		},
	)

	// Metrics and debug listener
	http.Handle("/metrics", promhttp.Handler())
	logger.Info(
		"serving prometheus metrics on "+fmt.Sprintf(
			"%s:%d",
			cfg.BindAddr,
			cfg.MetricsPort,
		),
		"component", "node",
	)
	metricsServer := &http.Server{
		Addr: fmt.Sprintf(
			"%s:%d",
			cfg.BindAddr,
			cfg.MetricsPort,
		),
		ReadHeaderTimeout: 60 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil &&
			err != http.ErrServerClosed {
			logger.Error(
				fmt.Sprintf("failed to start metrics listener: %s", err),
				"component", "node",
			)
			os.Exit(1)
		}
	}()

	// Wait for interrupt/termination signal
	signalCtx, signalCtxStop := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer signalCtxStop()

	// Keep the epoch current even when no deposits arrive
	go advanceTicker(signalCtx, l, db, advanceInterval, logger)

	<-signalCtx.Done()
	logger.Info("signal received, initiating graceful shutdown")
	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		shutdownTimeout,
	)
	defer cancel()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics server shutdown error", "error", err)
	}
	return nil
}

// advanceTicker periodically advances the epoch once the ledger is
// initialized and enabled
func advanceTicker(
	ctx context.Context,
	l *ledger.Ledger,
	db *database.Database,
	interval time.Duration,
	logger *slog.Logger,
) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			state, err := db.GetState(nil)
			if err != nil {
				logger.Error(
					"failed to read ledger state",
					"component", "node",
					"error", err,
				)
				continue
			}
			if state == nil || !state.Enabled {
				continue
			}
			if err := l.EnsureCurrent(); err != nil {
				logger.Error(
					"epoch advance failed",
					"component", "node",
					"error", err,
				)
			}
		}
	}
}
