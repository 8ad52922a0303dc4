package config

import (
	"errors"
	"os"
)

// Verify validates the configuration.
func Verify(cfg *ServerConfig) error {
	if err := verifyServer(&cfg.Server); err != nil {
		return err
	}
	if err := verifyMesh(&cfg.Mesh); err != nil {
		return err
	}
	if err := verifySnapshot(&cfg.Snapshot); err != nil {
		return err
	}
	return verifySim(&cfg.Sim)
}

func verifyServer(cfg *ServerSection) error {
	if cfg.HTTP.Addr == "" {
		return errors.New("server.http.addr is required")
	}
	if (cfg.HTTP.TLSCertFile == "") != (cfg.HTTP.TLSKeyFile == "") {
		return errors.New("server.http.tls_cert_file and tls_key_file must be set together")
	}
	return nil
}

func verifyMesh(cfg *MeshSection) error {
	if cfg.ChannelBuffer < 0 {
		return errors.New("mesh.channel_buffer must not be negative")
	}
	if cfg.InboxBuffer < 0 {
		return errors.New("mesh.inbox_buffer must not be negative")
	}
	if err := cfg.Topology.Validate(); err != nil {
		return errors.New("mesh.topology: " + err.Error())
	}
	return nil
}

func verifySnapshot(cfg *SnapshotSection) error {
	if cfg.Dir == "" {
		return errors.New("snapshot.dir is required")
	}
	if err := os.MkdirAll(cfg.Dir, 0750); err != nil {
		return errors.New("cannot create snapshot directory: " + err.Error())
	}
	if cfg.RetentionCount < 1 {
		return errors.New("snapshot.retention_count must be at least 1")
	}
	if cfg.SessionTimeout <= 0 {
		return errors.New("snapshot.session_timeout must be positive")
	}
	return nil
}

func verifySim(cfg *SimSection) error {
	if !cfg.Enabled {
		return nil
	}
	if cfg.Rate <= 0 {
		return errors.New("sim.rate must be positive when sim is enabled")
	}
	if cfg.MaxTransfer < 1 {
		return errors.New("sim.max_transfer must be at least 1")
	}
	return nil
}
