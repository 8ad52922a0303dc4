// Package config defines the server configuration structure.
package config

import (
	"time"

	"github.com/yndnr/snapmesh-go/internal/mesh/topology"
)

// ServerConfig is the root configuration for snapmesh-server.
type ServerConfig struct {
	Server   ServerSection   `koanf:"server"`
	Mesh     MeshSection     `koanf:"mesh"`
	Snapshot SnapshotSection `koanf:"snapshot"`
	Sim      SimSection      `koanf:"sim"`
	Log      LogSection      `koanf:"log"`
}

// ServerSection configures server endpoints.
type ServerSection struct {
	HTTP HTTPConfig `koanf:"http"`
}

// HTTPConfig configures the admin HTTP server.
type HTTPConfig struct {
	Addr        string `koanf:"addr"`
	TLSCertFile string `koanf:"tls_cert_file"`
	TLSKeyFile  string `koanf:"tls_key_file"`
}

// MeshSection declares the simulated mesh: the process/channel layout
// and the transport buffer sizes.
type MeshSection struct {
	ChannelBuffer int `koanf:"channel_buffer"`
	InboxBuffer   int `koanf:"inbox_buffer"`

	Topology topology.Spec `koanf:"topology"`
}

// SnapshotSection configures snapshot persistence and the session
// watchdog.
type SnapshotSection struct {
	// Dir is where assembled snapshot files are written.
	Dir string `koanf:"dir"`

	RetentionCount int `koanf:"retention_count"`
	RetentionDays  int `koanf:"retention_days"`

	// ArchivePath is the SQLite history database. Empty disables the
	// archive.
	ArchivePath string `koanf:"archive_path"`

	// SessionTimeout is how long the coordinator waits for all
	// contributions before discarding a session.
	SessionTimeout time.Duration `koanf:"session_timeout"`
}

// SimSection configures the built-in token transfer workload.
type SimSection struct {
	Enabled     bool    `koanf:"enabled"`
	Rate        float64 `koanf:"rate"`
	Burst       int     `koanf:"burst"`
	MaxTransfer int64   `koanf:"max_transfer"`
	Seed        int64   `koanf:"seed"`
}

// LogSection configures logging.
type LogSection struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}
