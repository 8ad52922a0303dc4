package command

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/snapmesh-go/internal/cli/connection"
	"github.com/yndnr/snapmesh-go/internal/cli/output"
)

// ProcessCommand returns the process subcommand group.
func ProcessCommand() *cli.Command {
	return &cli.Command{
		Name:    "process",
		Aliases: []string{"proc"},
		Usage:   "Inspect mesh processes",
		Subcommands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List processes in the mesh",
				Action: processList,
			},
		},
	}
}

func processList(c *cli.Context) error {
	client := NewServerClient(c)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	resp, err := client.Get(ctx, "/v1/processes")
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}

	var result struct {
		Processes []string `json:"processes"`
	}
	if err := connection.ParseResponse(resp, &result); err != nil {
		return err
	}

	flags := ParseGlobalFlags(c)
	switch output.Format(flags.Output) {
	case output.FormatJSON, output.FormatYAML:
		formatter := output.NewFormatter(output.Format(flags.Output), flags.Wide)
		return formatter.Format(os.Stdout, result.Processes)
	default:
		table := &output.Table{Headers: []string{"PROCESS ID"}}
		for _, id := range result.Processes {
			table.AddRow(id)
		}
		if err := table.Render(os.Stdout); err != nil {
			return err
		}
		fmt.Printf("\nTotal: %d processes\n", len(result.Processes))
		return nil
	}
}
