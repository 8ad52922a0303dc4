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

// archiveSummary mirrors one archived snapshot in list responses.
type archiveSummary struct {
	SessionID    string `json:"session_id"`
	Initiator    string `json:"initiator"`
	Status       string `json:"status"`
	StartedAt    int64  `json:"started_at"`
	CompletedAt  int64  `json:"completed_at"`
	ProcessCount int    `json:"process_count"`
	MessageCount int    `json:"message_count"`
}

// ArchiveCommand returns the archive subcommand group.
func ArchiveCommand() *cli.Command {
	return &cli.Command{
		Name:  "archive",
		Usage: "Inspect archived snapshots",
		Subcommands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List archived snapshots",
				Action: archiveList,
			},
			{
				Name:      "show",
				Usage:     "Show an archived snapshot",
				ArgsUsage: "SESSION_ID",
				Action:    archiveShow,
			},
		},
	}
}

func archiveList(c *cli.Context) error {
	client := NewServerClient(c)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	resp, err := client.Get(ctx, "/v1/archive")
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}

	var summaries []archiveSummary
	if err := connection.ParseResponse(resp, &summaries); err != nil {
		return err
	}

	flags := ParseGlobalFlags(c)
	switch output.Format(flags.Output) {
	case output.FormatJSON, output.FormatYAML:
		formatter := output.NewFormatter(output.Format(flags.Output), flags.Wide)
		return formatter.Format(os.Stdout, summaries)
	default:
		table := &output.Table{Headers: []string{"SESSION ID", "INITIATOR", "COMPLETED", "MESSAGES"}}
		for _, item := range summaries {
			table.AddRow(
				item.SessionID,
				item.Initiator,
				formatMillis(item.CompletedAt),
				fmt.Sprintf("%d", item.MessageCount),
			)
		}
		if err := table.Render(os.Stdout); err != nil {
			return err
		}
		fmt.Printf("\nTotal: %d archived snapshots\n", len(summaries))
		return nil
	}
}

func archiveShow(c *cli.Context) error {
	sessionID := c.Args().First()
	if sessionID == "" {
		return fmt.Errorf("session ID required")
	}

	client := NewServerClient(c)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	resp, err := client.Get(ctx, "/v1/archive/"+sessionID)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}

	var detail snapshotDetail
	if err := connection.ParseResponse(resp, &detail); err != nil {
		return err
	}

	flags := ParseGlobalFlags(c)
	formatter := output.NewFormatter(output.Format(flags.Output), flags.Wide)
	return formatter.Format(os.Stdout, detail)
}
