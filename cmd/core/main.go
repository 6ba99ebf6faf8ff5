/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/carverauto/sentinelcase/pkg/config"
	"github.com/carverauto/sentinelcase/pkg/core"
	"github.com/carverauto/sentinelcase/pkg/core/api"
	"github.com/carverauto/sentinelcase/pkg/db"
	"github.com/carverauto/sentinelcase/pkg/events"
	"github.com/carverauto/sentinelcase/pkg/logger"
	"github.com/carverauto/sentinelcase/pkg/models"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	configPath := flag.String("config", "/etc/sentinelcase/core.json", "Path to core config file")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var cfg models.CoreConfig
	if err := config.New(nil).Load(ctx, *configPath, &cfg); err != nil {
		return err
	}

	mainLogger, err := logger.New(cfg.Logging)
	if err != nil {
		return err
	}

	pool, err := db.NewPool(ctx, &cfg.Database, mainLogger)
	if err != nil {
		return err
	}

	if err := db.RunMigrations(ctx, pool, mainLogger); err != nil {
		return err
	}

	store := db.New(pool, mainLogger)
	defer store.Close()

	publisher, err := events.NewNATSPublisher(&cfg.NATS, mainLogger)
	if err != nil {
		return err
	}

	if publisher != nil {
		defer publisher.Close()
	}

	coreSrv := core.NewServer(store, mainLogger,
		core.WithEventPublisher(publisher),
		core.WithRelatedWindowDays(cfg.RelatedWindowDays))

	apiSrv := api.NewAPIServer(coreSrv, mainLogger)

	errCh := make(chan error, 1)

	go func() {
		if err := apiSrv.Start(cfg.ListenAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	mainLogger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	return apiSrv.Shutdown(shutdownCtx)
}
