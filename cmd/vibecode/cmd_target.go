package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/sahilm/fuzzy"
	"github.com/spf13/cobra"

	"github.com/user/vibecode/internal/config"
	"github.com/user/vibecode/internal/gateway"
	"github.com/user/vibecode/internal/target"
)

func init() {
	rootCmd.AddCommand(resolveCmd, sendCmd, targetsCmd)

	targetsCmd.Flags().StringP("filter", "f", "", "fuzzy filter on target names")
}

var resolveCmd = &cobra.Command{
	Use:   "resolve [target]",
	Short: "Show what a target expression resolves to",
	Long: `Resolve a target expression against the current projects and agents
without sending anything. Examples: all, current, project:2,
project:Backend, agent:#3, agent:api fixes. No argument means current.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := target.Parse(strings.Join(args, " "))
		if err != nil {
			return err
		}
		cfg := loadConfig()
		res, err := newGateway(cfg, openStores(cfg)).Resolve(cmd.Context(), t)
		if err != nil {
			return err
		}
		if !res.OK() {
			return res.Err()
		}

		switch res.Kind {
		case target.ResultProject:
			fmt.Fprintf(os.Stdout, "project %s (%s)\n", res.Project.Name, res.Project.ID)
		case target.ResultAgent:
			fmt.Fprintf(os.Stdout, "agent %s (%s)\n", res.Agent.Name, res.Agent.ID)
		case target.ResultBroadcast:
			fmt.Fprintln(os.Stdout, "all active agents")
		}
		return nil
	},
}

var sendCmd = &cobra.Command{
	Use:   "send <target> <text...>",
	Short: "Send a command to a target",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := target.Parse(args[0])
		if err != nil {
			return err
		}
		cfg := loadConfig()
		setupLogging(cfg)
		return sendOnce(cmd.Context(), cfg, openStores(cfg), &gateway.Command{
			Source: "cli",
			UserID: os.Getenv("USER"),
			Target: t,
			Text:   strings.Join(args[1:], " "),
		})
	},
}

// sendOnce dispatches a single command with a short-lived gateway and
// waits for its deliveries to finish.
func sendOnce(ctx context.Context, cfg *config.Config, s *stores, c *gateway.Command) error {
	gw := newGateway(cfg, s)
	gw.Start(ctx)
	defer gw.Stop()

	receipt, err := gw.Dispatch(ctx, c, gateway.WithOnFailure(func(err error) {
		fmt.Fprintf(os.Stderr, "Delivery failed: %v\n", err)
	}))
	if err != nil && len(receipt.Runs) == 0 {
		return err
	}
	if !receipt.Result.OK() {
		return receipt.Result.Err()
	}
	fmt.Fprintln(os.Stdout, receipt.Message())

	if !gw.Queue.WaitIdle(30 * time.Second) {
		return fmt.Errorf("timed out waiting for delivery")
	}
	return err
}

// entrySource adapts target entries for fuzzy matching on their names.
type entrySource []target.Entry

func (e entrySource) String(i int) string { return e[i].Name }
func (e entrySource) Len() int            { return len(e) }

func filterEntries(entries []target.Entry, pattern string) []target.Entry {
	if pattern == "" {
		return entries
	}
	matches := fuzzy.FindFrom(pattern, entrySource(entries))
	out := make([]target.Entry, 0, len(matches))
	for _, m := range matches {
		out = append(out, entries[m.Index])
	}
	return out
}

var targetsCmd = &cobra.Command{
	Use:   "targets",
	Short: "List numbered projects and active agents",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		entries, err := newGateway(cfg, openStores(cfg)).Targets(cmd.Context())
		if err != nil {
			return err
		}
		filter, _ := cmd.Flags().GetString("filter")
		entries = filterEntries(entries, filter)

		if len(entries) == 0 {
			fmt.Println("No targets found.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "TARGET\tNAME\tID")
		for _, e := range entries {
			fmt.Fprintf(w, "%s\t%s\t%s\n", e.Target(), e.Name, e.ID)
		}
		return w.Flush()
	},
}

// resolveRef finds the project or agent named by ref, an ordinal or a name
// matched the same way spoken targets are.
func resolveRef(ctx context.Context, cfg *config.Config, s *stores, kind target.Kind, ref string) (target.Result, error) {
	t, err := target.Parse(string(kind) + ":" + ref)
	if err != nil {
		return target.Result{}, err
	}
	res, err := newGateway(cfg, s).Resolve(ctx, t)
	if err != nil {
		return target.Result{}, err
	}
	if !res.OK() {
		return res, res.Err()
	}
	return res, nil
}
