// Package command provides CLI command definitions for snapmesh-cli.
package command

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/snapmesh-go/internal/cli/connection"
	"github.com/yndnr/snapmesh-go/internal/infra/buildinfo"
)

// App creates the CLI application.
func App() *cli.App {
	return &cli.App{
		Name:    "snapmesh-cli",
		Usage:   "snapmesh command-line management tool",
		Version: buildinfo.String(),
		Flags:   globalFlags(),
		Commands: []*cli.Command{
			SnapshotCommand(),
			ProcessCommand(),
			ArchiveCommand(),
			SystemCommand(),
		},
	}
}

// globalFlags returns the global CLI flags.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "server",
			Aliases: []string{"s"},
			Usage:   "snapmesh server address (e.g., localhost:5480)",
			EnvVars: []string{"SNAPMESH_SERVER"},
			Value:   "localhost:5480",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output format: table, json, yaml",
			Value:   "table",
		},
		&cli.BoolFlag{
			Name:    "wide",
			Aliases: []string{"w"},
			Usage:   "Show wide output (more columns)",
		},
	}
}

// GlobalFlags holds flags available to all commands.
type GlobalFlags struct {
	Server string
	Output string
	Wide   bool
}

// ParseGlobalFlags extracts global flags from context.
func ParseGlobalFlags(c *cli.Context) *GlobalFlags {
	return &GlobalFlags{
		Server: c.String("server"),
		Output: c.String("output"),
		Wide:   c.Bool("wide"),
	}
}

// NewServerClient creates the HTTP client for the configured server.
func NewServerClient(c *cli.Context) *connection.Client {
	return connection.NewClient(c.String("server"))
}

// PrintError prints an error message to stderr.
func PrintError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
}
