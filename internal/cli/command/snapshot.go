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

// snapshotSummary mirrors one session in server list responses.
type snapshotSummary struct {
	SessionID    string `json:"session_id"`
	Initiator    string `json:"initiator"`
	Status       string `json:"status"`
	StartedAt    int64  `json:"started_at"`
	CompletedAt  int64  `json:"completed_at"`
	ProcessCount int    `json:"process_count"`
	MessageCount int    `json:"message_count"`
}

// snapshotDetail mirrors the server detail response.
type snapshotDetail struct {
	snapshotSummary
	Contributions []struct {
		ProcessID   string         `json:"process_id"`
		LocalState  []byte         `json:"local_state"`
		ChannelLogs map[string]int `json:"channel_logs"`
	} `json:"contributions"`
}

// SnapshotCommand returns the snapshot subcommand group.
func SnapshotCommand() *cli.Command {
	return &cli.Command{
		Name:    "snapshot",
		Aliases: []string{"snap"},
		Usage:   "Manage snapshot sessions",
		Subcommands: []*cli.Command{
			{
				Name:  "trigger",
				Usage: "Start a new snapshot session",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "initiator",
						Aliases:  []string{"i"},
						Usage:    "Process that initiates the snapshot",
						Required: true,
					},
					&cli.BoolFlag{
						Name:  "wait",
						Usage: "Wait until the session completes",
					},
					&cli.DurationFlag{
						Name:  "timeout",
						Value: 30 * time.Second,
						Usage: "How long to wait with --wait",
					},
				},
				Action: snapshotTrigger,
			},
			{
				Name:      "status",
				Usage:     "Show a snapshot session",
				ArgsUsage: "SESSION_ID",
				Action:    snapshotStatus,
			},
			{
				Name:   "list",
				Usage:  "List snapshot sessions",
				Action: snapshotList,
			},
		},
	}
}

func snapshotTrigger(c *cli.Context) error {
	client := NewServerClient(c)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	resp, err := client.Post(ctx, "/v1/snapshots", map[string]string{
		"initiator": c.String("initiator"),
	})
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}

	var result struct {
		SessionID string `json:"session_id"`
		Initiator string `json:"initiator"`
	}
	if err := connection.ParseResponse(resp, &result); err != nil {
		return err
	}

	if !c.Bool("wait") {
		fmt.Printf("Snapshot session started:\n")
		fmt.Printf("  Session ID: %s\n", result.SessionID)
		fmt.Printf("  Initiator:  %s\n", result.Initiator)
		return nil
	}

	return waitForCompletion(c, client, result.SessionID)
}

// waitForCompletion polls the session until it leaves pending state.
func waitForCompletion(c *cli.Context, client *connection.Client, sessionID string) error {
	spinner := output.NewSpinner(os.Stderr, "waiting for snapshot "+sessionID)
	spinner.Start()

	ctx, cancel := context.WithTimeout(context.Background(), c.Duration("timeout"))
	defer cancel()

	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			spinner.Fail("timed out waiting for " + sessionID)
			return fmt.Errorf("session %s still pending after %s", sessionID, c.Duration("timeout"))
		case <-ticker.C:
		}

		detail, err := fetchSnapshot(ctx, client, sessionID)
		if err != nil {
			spinner.Fail(err.Error())
			return err
		}

		switch detail.Status {
		case "complete":
			spinner.Success(fmt.Sprintf("snapshot %s complete: %d processes, %d in-transit messages",
				sessionID, detail.ProcessCount, detail.MessageCount))
			return nil
		case "failed":
			spinner.Fail("session " + sessionID + " was discarded")
			return fmt.Errorf("session %s failed", sessionID)
		}
	}
}

func fetchSnapshot(ctx context.Context, client *connection.Client, sessionID string) (*snapshotDetail, error) {
	resp, err := client.Get(ctx, "/v1/snapshots/"+sessionID)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	var detail snapshotDetail
	if err := connection.ParseResponse(resp, &detail); err != nil {
		return nil, err
	}
	return &detail, nil
}

func snapshotStatus(c *cli.Context) error {
	sessionID := c.Args().First()
	if sessionID == "" {
		return fmt.Errorf("session ID required")
	}

	client := NewServerClient(c)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	detail, err := fetchSnapshot(ctx, client, sessionID)
	if err != nil {
		return err
	}

	flags := ParseGlobalFlags(c)
	switch output.Format(flags.Output) {
	case output.FormatJSON, output.FormatYAML:
		formatter := output.NewFormatter(output.Format(flags.Output), flags.Wide)
		return formatter.Format(os.Stdout, detail)
	default:
		fmt.Printf("Session:    %s\n", detail.SessionID)
		fmt.Printf("Initiator:  %s\n", detail.Initiator)
		fmt.Printf("Status:     %s\n", detail.Status)
		fmt.Printf("Started:    %s\n", formatMillis(detail.StartedAt))
		if detail.CompletedAt > 0 {
			fmt.Printf("Completed:  %s\n", formatMillis(detail.CompletedAt))
		}
		fmt.Printf("Processes:  %d\n", detail.ProcessCount)
		fmt.Printf("In-transit: %d messages\n", detail.MessageCount)

		if len(detail.Contributions) > 0 {
			table := &output.Table{Headers: []string{"PROCESS", "STATE BYTES", "CHANNELS", "RECORDED MSGS"}}
			for _, contrib := range detail.Contributions {
				recorded := 0
				for _, n := range contrib.ChannelLogs {
					recorded += n
				}
				table.AddRow(
					contrib.ProcessID,
					fmt.Sprintf("%d", len(contrib.LocalState)),
					fmt.Sprintf("%d", len(contrib.ChannelLogs)),
					fmt.Sprintf("%d", recorded),
				)
			}
			fmt.Println()
			return table.Render(os.Stdout)
		}
		return nil
	}
}

func snapshotList(c *cli.Context) error {
	client := NewServerClient(c)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	resp, err := client.Get(ctx, "/v1/snapshots")
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}

	var result struct {
		Items []snapshotSummary `json:"items"`
		Total int               `json:"total"`
	}
	if err := connection.ParseResponse(resp, &result); err != nil {
		return err
	}

	flags := ParseGlobalFlags(c)
	switch output.Format(flags.Output) {
	case output.FormatJSON, output.FormatYAML:
		formatter := output.NewFormatter(output.Format(flags.Output), flags.Wide)
		return formatter.Format(os.Stdout, result.Items)
	default:
		table := &output.Table{Headers: []string{"SESSION ID", "INITIATOR", "STATUS", "STARTED", "MESSAGES"}}
		for _, item := range result.Items {
			table.AddRow(
				item.SessionID,
				item.Initiator,
				item.Status,
				formatMillis(item.StartedAt),
				fmt.Sprintf("%d", item.MessageCount),
			)
		}
		if err := table.Render(os.Stdout); err != nil {
			return err
		}
		fmt.Printf("\nTotal: %d sessions\n", result.Total)
		return nil
	}
}

// formatMillis renders a unix-millisecond timestamp for display.
func formatMillis(ms int64) string {
	if ms == 0 {
		return "-"
	}
	return time.UnixMilli(ms).Format("2006-01-02 15:04:05")
}
