package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/user/vibecode/internal/config"
	"github.com/user/vibecode/internal/state"
	"github.com/user/vibecode/internal/target"
	"github.com/user/vibecode/internal/types"
)

func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(sessionStartCmd, sessionListCmd, sessionStopCmd, sessionTitleCmd, sessionFocusCmd)

	sessionStartCmd.Flags().String("project", "", "project ID, number or name")
	sessionStartCmd.Flags().String("agent", "claude", "agent kind")
	sessionStartCmd.Flags().String("title", "", "conversation title")
	sessionListCmd.Flags().Bool("all", false, "include stopped sessions")
}

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage agent sessions",
}

// lookupSession accepts a session ID, or the number or title of an active session.
func lookupSession(ctx context.Context, cfg *config.Config, s *stores, ref string) (*types.AgentSession, error) {
	sess, err := s.sessions.Get(ctx, types.SessionID(ref))
	if err == nil {
		return sess, nil
	}
	if !errors.Is(err, state.ErrNotFound) {
		return nil, err
	}
	res, err := resolveRef(ctx, cfg, s, target.KindAgent, ref)
	if err != nil {
		return nil, err
	}
	return s.sessions.Get(ctx, res.Agent.ID)
}

var sessionStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Register a new agent session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		s := openStores(cfg)
		ctx := cmd.Context()

		projectRef, _ := cmd.Flags().GetString("project")
		agent, _ := cmd.Flags().GetString("agent")
		title, _ := cmd.Flags().GetString("title")

		var projectID types.ProjectID
		if projectRef != "" {
			p, err := lookupProject(ctx, cfg, s, projectRef)
			if err != nil {
				return err
			}
			projectID = p.ID
		}

		sess, err := s.sessions.Start(ctx, projectID, agent, title)
		if err != nil {
			return fmt.Errorf("start session: %w", err)
		}
		fmt.Fprintf(os.Stdout, "Session %s started (%s).\n", sess.ID, sess.DisplayTitle())
		return nil
	},
}

var sessionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List agent sessions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s := openStores(loadConfig())
		ctx := cmd.Context()

		all, _ := cmd.Flags().GetBool("all")
		var (
			list []types.AgentSession
			err  error
		)
		if all {
			list, err = s.sessions.List(ctx)
		} else {
			list, err = s.sessions.ListActive(ctx)
		}
		if err != nil {
			return fmt.Errorf("list sessions: %w", err)
		}

		if len(list) == 0 {
			fmt.Println("No sessions found.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tTITLE\tAGENT\tSTATUS\tCOMMANDS\tSTARTED")
		for _, sess := range list {
			count, err := s.events.Count(ctx, types.AgentLane(sess.ID))
			if err != nil {
				count = 0
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n",
				sess.ID,
				sess.DisplayTitle(),
				sess.Agent,
				sess.Status,
				count,
				sess.StartTime.Format("2006-01-02 15:04:05"),
			)
		}
		return w.Flush()
	},
}

var sessionStopCmd = &cobra.Command{
	Use:   "stop <session>",
	Short: "Mark a session as stopped",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		s := openStores(cfg)
		sess, err := lookupSession(cmd.Context(), cfg, s, args[0])
		if err != nil {
			return err
		}
		if err := s.sessions.Stop(cmd.Context(), sess.ID); err != nil {
			return fmt.Errorf("stop session: %w", err)
		}
		fmt.Fprintf(os.Stdout, "Session %q stopped.\n", sess.DisplayTitle())
		return nil
	},
}

var sessionTitleCmd = &cobra.Command{
	Use:   "title <session> <title...>",
	Short: "Set a session's conversation title",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		s := openStores(cfg)
		sess, err := lookupSession(cmd.Context(), cfg, s, args[0])
		if err != nil {
			return err
		}
		title := strings.Join(args[1:], " ")
		if err := s.sessions.SetTitle(cmd.Context(), sess.ID, title); err != nil {
			return fmt.Errorf("set title: %w", err)
		}
		fmt.Fprintf(os.Stdout, "Session %s titled %q.\n", sess.ID, title)
		return nil
	},
}

var sessionFocusCmd = &cobra.Command{
	Use:   "focus <session>",
	Short: "Make a session the current target",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		s := openStores(cfg)
		sess, err := lookupSession(cmd.Context(), cfg, s, args[0])
		if err != nil {
			return err
		}
		if err := s.focus.FocusSession(cmd.Context(), sess.ID); err != nil {
			return fmt.Errorf("focus session: %w", err)
		}
		fmt.Fprintf(os.Stdout, "Focused session %q.\n", sess.DisplayTitle())
		return nil
	},
}
