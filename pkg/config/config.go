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

// Package config loads service configuration from a JSON file, then applies
// environment overrides so secrets never have to live on disk.
package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/carverauto/sentinelcase/pkg/logger"
	"github.com/carverauto/sentinelcase/pkg/models"
)

// envPrefix namespaces all override variables.
const envPrefix = "SENTINELCASE_"

var (
	errMissingDatabaseHost = errors.New("database host is required")
	errMissingDatabaseName = errors.New("database name is required")
	errMissingListenAddr   = errors.New("listen address is required")
)

// Loader reads and validates service configuration.
type Loader struct {
	logger logger.Logger
}

// New creates a configuration loader.
func New(log logger.Logger) *Loader {
	return &Loader{logger: log}
}

// Load reads the JSON config at path into cfg, applies environment
// overrides, fills defaults, and validates the result.
func (l *Loader) Load(_ context.Context, path string, cfg *models.CoreConfig) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file '%s': %w", path, err)
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to unmarshal JSON from '%s': %w", path, err)
	}

	l.applyEnvOverrides(cfg)
	applyDefaults(cfg)

	if err := validate(cfg); err != nil {
		return err
	}

	if l.logger != nil {
		l.logger.Debug().Str("path", path).Msg("configuration loaded")
	}

	return nil
}

// applyEnvOverrides lets deployment environments replace file values without
// editing the config. Secrets (database password) are expected to arrive this
// way.
func (l *Loader) applyEnvOverrides(cfg *models.CoreConfig) {
	overrideString(&cfg.ListenAddr, "LISTEN_ADDR")
	overrideString(&cfg.Database.Host, "DB_HOST")
	overrideInt(&cfg.Database.Port, "DB_PORT")
	overrideString(&cfg.Database.Database, "DB_NAME")
	overrideString(&cfg.Database.Username, "DB_USER")
	overrideString(&cfg.Database.Password, "DB_PASSWORD")
	overrideString(&cfg.Database.SSLMode, "DB_SSLMODE")
	overrideString(&cfg.NATS.URL, "NATS_URL")
	overrideInt(&cfg.RelatedWindowDays, "RELATED_WINDOW_DAYS")
}

func overrideString(dst *string, key string) {
	if v, ok := os.LookupEnv(envPrefix + key); ok {
		*dst = v
	}
}

func overrideInt(dst *int, key string) {
	v, ok := os.LookupEnv(envPrefix + key)
	if !ok {
		return
	}

	parsed, err := strconv.Atoi(v)
	if err != nil {
		return
	}

	*dst = parsed
}

func applyDefaults(cfg *models.CoreConfig) {
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8090"
	}

	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}

	if cfg.Database.Username == "" {
		cfg.Database.Username = "sentinelcase"
	}

	if cfg.RelatedWindowDays <= 0 {
		cfg.RelatedWindowDays = 30
	}
}

func validate(cfg *models.CoreConfig) error {
	if cfg.ListenAddr == "" {
		return errMissingListenAddr
	}

	if cfg.Database.Host == "" {
		return errMissingDatabaseHost
	}

	if cfg.Database.Database == "" {
		return errMissingDatabaseName
	}

	return nil
}
