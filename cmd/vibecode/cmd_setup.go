package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/user/vibecode/internal/config"
)

func init() {
	rootCmd.AddCommand(setupCmd)
}

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Interactive setup wizard",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		scanner := bufio.NewScanner(os.Stdin)

		fmt.Println("vibecode setup")
		fmt.Println("Press Enter to accept the default value shown in brackets.")
		fmt.Println()

		cfg.DataDir = prompt(scanner, "Data directory", cfg.DataDir)
		cfg.HTTP.Listen = prompt(scanner, "HTTP listen address", cfg.HTTP.Listen)

		concurrency := prompt(scanner, "Max concurrent deliveries", strconv.Itoa(cfg.MaxConcurrent))
		if n, err := strconv.Atoi(concurrency); err == nil && n > 0 {
			cfg.MaxConcurrent = n
		}

		cfg.Delivery.URL = prompt(scanner, "Agent delivery URL (optional)", cfg.Delivery.URL)
		if cfg.Delivery.URL != "" {
			cfg.Delivery.Token = prompt(scanner, "Delivery bearer token (optional)", cfg.Delivery.Token)
		}

		cfg.Telegram.Token = prompt(scanner, "Telegram bot token (optional)", cfg.Telegram.Token)
		if cfg.Telegram.Token != "" {
			users := prompt(scanner, "Allowed Telegram user IDs, comma separated (optional)", joinIDs(cfg.Telegram.AllowedUsers))
			ids, err := parseIDs(users)
			if err != nil {
				return err
			}
			cfg.Telegram.AllowedUsers = ids
		}

		if err := config.Save(cfgPath, cfg); err != nil {
			return fmt.Errorf("save config: %w", err)
		}

		fmt.Println()
		fmt.Println("Configuration saved to", cfgPath)
		return nil
	},
}

// prompt displays a labeled prompt with a default value and reads user input.
// If the user enters nothing, the default is returned.
func prompt(scanner *bufio.Scanner, label, defaultVal string) string {
	if defaultVal != "" {
		fmt.Printf("%s [%s]: ", label, defaultVal)
	} else {
		fmt.Printf("%s: ", label)
	}
	if scanner.Scan() {
		input := strings.TrimSpace(scanner.Text())
		if input != "" {
			return input
		}
	}
	return defaultVal
}

func joinIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}

func parseIDs(s string) ([]int64, error) {
	var ids []int64
	for _, f := range strings.Split(s, ",") {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		id, err := strconv.ParseInt(f, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid user ID %q: %w", f, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
