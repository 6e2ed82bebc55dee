package main

import (
	"context"
	"fmt"
	"net/http"
	"text/tabwriter"
	"time"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/angeloszaimis/clientid-rotator/internal/identity"
)

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show client ID pool status",
		Long:  "Query a running rotator server and print the state of every client ID.",
		Args:  cobra.NoArgs,
		RunE:  runStatus,
	}

	cmd.Flags().String("address", "127.0.0.1:8080", "rotator server address")

	return cmd
}

func runStatus(cmd *cobra.Command, _ []string) error {
	addr, _ := cmd.Flags().GetString("address")

	snap, err := fetchStatus(cmd.Context(), addr)
	if err != nil {
		return fmt.Errorf("rotator at %s: %w", addr, err)
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "Strategy: %s  Active: %d  Cooling down: %d  Total: %d\n\n",
		snap.Strategy, snap.Active, snap.CoolingDown, snap.Total)

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "#\tCLIENT ID\tSTATE\tSUCCESS\tFAILURE\tCOOLDOWN")
	for _, st := range snap.Identities {
		marker := ""
		if st.Position == snap.Cursor {
			marker = "*"
		}

		cooldown := "-"
		if st.State == identity.StateCoolingDown {
			cooldown = st.CooldownRemaining.Round(time.Second).String()
		}

		_, _ = fmt.Fprintf(tw, "%d%s\t%s\t%s\t%d\t%d\t%s\n",
			st.Position+1, marker, st.ID, st.State, st.SuccessCount, st.FailureCount, cooldown)
	}

	return tw.Flush()
}

func fetchStatus(ctx context.Context, addr string) (*identity.Snapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://"+addr+"/status", nil)
	if err != nil {
		return nil, err
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}

	var snap identity.Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		return nil, fmt.Errorf("decoding status: %w", err)
	}

	return &snap, nil
}
