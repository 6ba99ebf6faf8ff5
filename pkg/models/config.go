package models

import "github.com/carverauto/sentinelcase/pkg/logger"

// Database holds Postgres connection settings.
type Database struct {
	Host               string            `json:"host"`
	Port               int               `json:"port"`
	Database           string            `json:"database"`
	Username           string            `json:"username"`
	Password           string            `json:"password"`
	SSLMode            string            `json:"ssl_mode,omitempty"`
	ApplicationName    string            `json:"application_name,omitempty"`
	MaxConnections     int32             `json:"max_connections,omitempty"`
	MinConnections     int32             `json:"min_connections,omitempty"`
	StatementTimeoutMS int               `json:"statement_timeout_ms,omitempty"`
	ExtraRuntimeParams map[string]string `json:"extra_runtime_params,omitempty"`
}

// NATSConfig holds the optional event bus settings. A missing URL disables
// event publishing entirely.
type NATSConfig struct {
	URL           string `json:"url,omitempty"`
	SubjectPrefix string `json:"subject_prefix,omitempty"`
}

// CoreConfig is the top-level service configuration.
type CoreConfig struct {
	ListenAddr string        `json:"listen_addr"`
	Database   Database      `json:"database"`
	NATS       NATSConfig    `json:"nats"`
	Logging    logger.Config `json:"logging"`

	// RelatedWindowDays is the default lookback for relatedness scoring.
	RelatedWindowDays int `json:"related_window_days,omitempty"`
}
