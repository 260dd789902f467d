package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/user/vibecode/internal/gateway"
	"github.com/user/vibecode/internal/scheduler"
	"github.com/user/vibecode/internal/state"
	"github.com/user/vibecode/internal/target"
)

func init() {
	rootCmd.AddCommand(taskCmd)
	taskCmd.AddCommand(taskAddCmd, taskListCmd, taskRemoveCmd, taskEnableCmd, taskDisableCmd, taskRunCmd)

	taskAddCmd.Flags().String("name", "", "task name (required)")
	taskAddCmd.Flags().String("target", "current", "target expression, e.g. project:2 or agent:api")
	taskAddCmd.Flags().String("command", "", "command text (required)")
	taskAddCmd.Flags().String("schedule", "", "cron schedule expression")
	_ = taskAddCmd.MarkFlagRequired("name")
	_ = taskAddCmd.MarkFlagRequired("command")
}

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Manage saved commands",
}

var taskAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a new task",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("name")
		expr, _ := cmd.Flags().GetString("target")
		text, _ := cmd.Flags().GetString("command")
		schedule, _ := cmd.Flags().GetString("schedule")

		t, err := target.Parse(expr)
		if err != nil {
			return err
		}
		if schedule != "" {
			if err := scheduler.ValidateSchedule(schedule); err != nil {
				return err
			}
		}

		task := &state.Task{
			Name:     name,
			Target:   t.String(),
			Command:  text,
			Schedule: schedule,
			Enabled:  true,
		}
		if err := openStores(loadConfig()).tasks.Add(task); err != nil {
			return fmt.Errorf("add task: %w", err)
		}
		fmt.Fprintf(os.Stdout, "Task %q added.\n", name)
		return nil
	},
}

var taskListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all tasks",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		tasks, err := openStores(loadConfig()).tasks.List()
		if err != nil {
			return fmt.Errorf("list tasks: %w", err)
		}

		if len(tasks) == 0 {
			fmt.Println("No tasks configured.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tTARGET\tSCHEDULE\tENABLED\tCOMMAND")
		for _, t := range tasks {
			fmt.Fprintf(w, "%s\t%s\t%s\t%v\t%s\n", t.Name, t.Target, t.Schedule, t.Enabled, t.Command)
		}
		return w.Flush()
	},
}

var taskRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Remove a task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := openStores(loadConfig()).tasks.Remove(args[0]); err != nil {
			return fmt.Errorf("remove task: %w", err)
		}
		fmt.Fprintf(os.Stdout, "Task %q removed.\n", args[0])
		return nil
	},
}

func setTaskEnabled(name string, enabled bool) error {
	if err := openStores(loadConfig()).tasks.SetEnabled(name, enabled); err != nil {
		return err
	}
	status := "disabled"
	if enabled {
		status = "enabled"
	}
	fmt.Fprintf(os.Stdout, "Task %q %s.\n", name, status)
	return nil
}

var taskEnableCmd = &cobra.Command{
	Use:   "enable <name>",
	Short: "Enable a task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := setTaskEnabled(args[0], true); err != nil {
			return fmt.Errorf("enable task: %w", err)
		}
		return nil
	},
}

var taskDisableCmd = &cobra.Command{
	Use:   "disable <name>",
	Short: "Disable a task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := setTaskEnabled(args[0], false); err != nil {
			return fmt.Errorf("disable task: %w", err)
		}
		return nil
	},
}

var taskRunCmd = &cobra.Command{
	Use:   "run <name>",
	Short: "Send a task's command now",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		setupLogging(cfg)
		s := openStores(cfg)

		task, err := s.tasks.Get(args[0])
		if err != nil {
			return err
		}
		t, err := target.Parse(task.Target)
		if err != nil {
			return fmt.Errorf("task %s: %w", task.Name, err)
		}
		return sendOnce(cmd.Context(), cfg, s, &gateway.Command{Source: "cli:task:" + task.Name, Target: t, Text: task.Command})
	},
}
