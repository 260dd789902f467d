package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/user/vibecode/internal/config"
	"github.com/user/vibecode/internal/state"
	"github.com/user/vibecode/internal/target"
	"github.com/user/vibecode/internal/types"
)

func init() {
	rootCmd.AddCommand(projectCmd)
	projectCmd.AddCommand(projectAddCmd, projectListCmd, projectRemoveCmd, projectRenameCmd, projectFocusCmd)

	projectAddCmd.Flags().String("path", "", "project directory (defaults to the current directory)")
}

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Manage projects",
}

// lookupProject accepts a project ID, number or name.
func lookupProject(ctx context.Context, cfg *config.Config, s *stores, ref string) (*types.Project, error) {
	p, err := s.projects.Get(ctx, types.ProjectID(ref))
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, state.ErrNotFound) {
		return nil, err
	}
	res, err := resolveRef(ctx, cfg, s, target.KindProject, ref)
	if err != nil {
		return nil, err
	}
	return s.projects.Get(ctx, res.Project.ID)
}

var projectAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add a project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("path")
		if path == "" {
			wd, err := os.Getwd()
			if err != nil {
				return fmt.Errorf("get working directory: %w", err)
			}
			path = wd
		}
		abs, err := filepath.Abs(path)
		if err != nil {
			return fmt.Errorf("resolve path: %w", err)
		}

		p, err := openStores(loadConfig()).projects.Add(cmd.Context(), args[0], abs)
		if err != nil {
			return fmt.Errorf("add project: %w", err)
		}
		fmt.Fprintf(os.Stdout, "Project %q added (%s).\n", p.Name, p.ID)
		return nil
	},
}

var projectListCmd = &cobra.Command{
	Use:   "list",
	Short: "List projects in target order",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s := openStores(loadConfig())
		ctx := cmd.Context()
		list, err := s.projects.List(ctx)
		if err != nil {
			return fmt.Errorf("list projects: %w", err)
		}
		if len(list) == 0 {
			fmt.Println("No projects found.")
			return nil
		}
		focused, err := s.projects.Focused(ctx)
		if err != nil {
			return fmt.Errorf("load focused project: %w", err)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "#\tNAME\tPATH\tID\t")
		for i, p := range list {
			mark := ""
			if p.ID == focused {
				mark = "*"
			}
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", i+1, p.Name, p.Path, p.ID, mark)
		}
		return w.Flush()
	},
}

var projectRemoveCmd = &cobra.Command{
	Use:     "rm <project>",
	Aliases: []string{"remove"},
	Short:   "Remove a project",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		s := openStores(cfg)
		p, err := lookupProject(cmd.Context(), cfg, s, args[0])
		if err != nil {
			return err
		}
		if err := s.projects.Remove(cmd.Context(), p.ID); err != nil {
			return fmt.Errorf("remove project: %w", err)
		}
		fmt.Fprintf(os.Stdout, "Project %q removed.\n", p.Name)
		return nil
	},
}

var projectRenameCmd = &cobra.Command{
	Use:   "rename <project> <name>",
	Short: "Rename a project",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		s := openStores(cfg)
		p, err := lookupProject(cmd.Context(), cfg, s, args[0])
		if err != nil {
			return err
		}
		if err := s.projects.Rename(cmd.Context(), p.ID, args[1]); err != nil {
			return fmt.Errorf("rename project: %w", err)
		}
		fmt.Fprintf(os.Stdout, "Project %q renamed to %q.\n", p.Name, args[1])
		return nil
	},
}

var projectFocusCmd = &cobra.Command{
	Use:   "focus <project>",
	Short: "Focus a project in the workspace and as the current target",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		s := openStores(cfg)
		ctx := cmd.Context()
		p, err := lookupProject(ctx, cfg, s, args[0])
		if err != nil {
			return err
		}
		if err := s.projects.SetFocused(ctx, p.ID); err != nil {
			return fmt.Errorf("focus workspace: %w", err)
		}
		if err := s.focus.FocusProject(ctx, p.ID); err != nil {
			return fmt.Errorf("focus project: %w", err)
		}
		fmt.Fprintf(os.Stdout, "Focused project %q.\n", p.Name)
		return nil
	},
}
