package config

import (
	"time"

	"github.com/yndnr/snapmesh-go/internal/mesh/topology"
)

// Default configuration values.
const (
	DefaultHTTPAddr = "127.0.0.1:5480"

	DefaultSnapshotDir    = "/var/lib/snapmesh-server/snapshots"
	DefaultArchivePath    = "/var/lib/snapmesh-server/archive.db"
	DefaultRetentionCount = 10
	DefaultRetentionDays  = 7
	DefaultSessionTimeout = 30 * time.Second

	DefaultChannelBuffer = 256
	DefaultInboxBuffer   = 1024

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// Default returns the default server configuration: a three process
// ring with the workload enabled.
func Default() *ServerConfig {
	return &ServerConfig{
		Server: ServerSection{
			HTTP: HTTPConfig{
				Addr: DefaultHTTPAddr,
			},
		},
		Mesh: MeshSection{
			ChannelBuffer: DefaultChannelBuffer,
			InboxBuffer:   DefaultInboxBuffer,
			Topology:      *topology.Ring(1000, "p1", "p2", "p3"),
		},
		Snapshot: SnapshotSection{
			Dir:            DefaultSnapshotDir,
			RetentionCount: DefaultRetentionCount,
			RetentionDays:  DefaultRetentionDays,
			ArchivePath:    DefaultArchivePath,
			SessionTimeout: DefaultSessionTimeout,
		},
		Sim: SimSection{
			Enabled:     true,
			Rate:        50,
			Burst:       10,
			MaxTransfer: 10,
		},
		Log: LogSection{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}
