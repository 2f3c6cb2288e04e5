package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mcoot/partyroom/internal/model"
)

func newEventsCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "events <session>",
		Short: "Stream a session's events",
		Long: `Connect to the session's event stream and print events as they happen.
You must be a member of the session.

Events:
  - session.snapshot: Current state, sent once on connect
  - room.updated: Participants joined or left
  - game.updated: A game command changed state
  - round.countdown: A word round countdown started

Press Ctrl+C to disconnect. Disconnecting counts as losing a connection: if
it was your last one you leave every session.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return streamEvents(ctx, cmd.OutOrStdout(), args[0], jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output events as JSON lines")

	return cmd
}

func streamEvents(ctx context.Context, w io.Writer, session string, jsonOutput bool) error {
	url := strings.TrimSuffix(cfg.ServerURL, "/") + "/api/v1/sessions/" + session + "/events"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")
	if cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+cfg.Token)
	}

	// No timeout for SSE
	resp, err := (&http.Client{}).Do(req)
	if err != nil {
		return fmt.Errorf("connection failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if !jsonOutput {
		fmt.Fprintf(w, "Connected to session %s\n", session)
	}

	// Parse SSE stream
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	var dataLines []string

	for scanner.Scan() {
		line := scanner.Text()

		switch {
		case strings.HasPrefix(line, "data: "):
			dataLines = append(dataLines, strings.TrimPrefix(line, "data: "))
		case line == "":
			// End of event
			if len(dataLines) > 0 {
				printEvent(w, strings.Join(dataLines, "\n"), jsonOutput)
			}
			dataLines = nil
		}
	}

	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("stream error: %w", err)
	}

	if !jsonOutput {
		fmt.Fprintln(w, "Disconnected")
	}
	return nil
}

func printEvent(w io.Writer, data string, jsonOutput bool) {
	if jsonOutput {
		fmt.Fprintln(w, data)
		return
	}

	var event model.Event
	if err := json.Unmarshal([]byte(data), &event); err != nil {
		fmt.Fprintf(w, "[%s] unreadable event: %s\n", time.Now().Format("15:04:05"), data)
		return
	}

	fmt.Fprintf(w, "[%s] %s", event.Timestamp.Local().Format("15:04:05"), event.Type)
	if event.Actor != "" {
		fmt.Fprintf(w, " by %s", event.Actor)
	}
	fmt.Fprintln(w)
	NewOutput(w, "text").Print(&event.Snapshot)
}
