package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"time"

	"mcwatch/internal/cli/ui"
	"mcwatch/internal/slp"

	"github.com/spf13/cobra"
)

var refreshCmd = &cobra.Command{
	Use:   "refresh [address]",
	Short: "Poll every server now, or a single one",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) == 1 {
			handleRefreshOne(args[0])
			return
		}
		handleRefreshAll()
	},
}

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Read and change daemon settings",
}

var settingsGetCmd = &cobra.Command{
	Use:   "get [key]",
	Short: "Show one setting, or all of them",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) == 1 {
			handleGetSetting(args[0])
			return
		}
		handleListSettings()
	},
}

var settingsSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Change a setting (e.g. theme dark)",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		handleSetSetting(args[0], args[1])
	},
}

var watchAddress string

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print status changes as they happen",
	Run: func(cmd *cobra.Command, args []string) {
		handleWatch(watchAddress)
	},
}

var pingTimeout time.Duration

var pingCmd = &cobra.Command{
	Use:   "ping [address]",
	Short: "Query a server directly, without the daemon",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		handlePing(args[0], pingTimeout)
	},
}

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Check for updates",
	Run: func(cmd *cobra.Command, args []string) {
		handleCheckUpdates()
	},
}

func init() {
	settingsCmd.AddCommand(settingsGetCmd, settingsSetCmd)
	watchCmd.Flags().StringVar(&watchAddress, "address", "", "Only follow this server")
	pingCmd.Flags().DurationVar(&pingTimeout, "timeout", slp.DefaultTimeout, "Query timeout")

	RootCmd.AddCommand(refreshCmd, settingsCmd, watchCmd, pingCmd, updateCmd)
}

func handleRefreshAll() {
	started, err := Client.RefreshAll()
	if err != nil {
		log.Fatalf("Error refreshing: %v", err)
	}
	if !started {
		fmt.Println("A refresh is already running.")
		return
	}
	fmt.Println("Refresh started.")
}

func handleRefreshOne(address string) {
	if err := Client.RefreshServer(address); err != nil {
		log.Fatalf("Error refreshing server: %v", err)
	}
	fmt.Println("Refresh started.")
}

func handleListSettings() {
	settings, err := Client.ListSettings()
	if err != nil {
		log.Fatalf("Error listing settings: %v", err)
	}
	fmt.Println("\n--- SETTINGS ---")
	for key, value := range settings {
		fmt.Printf("%-12s %s\n", key, value)
	}
}

func handleGetSetting(key string) {
	value, err := Client.GetSetting(key)
	if err != nil {
		log.Fatalf("Error getting setting: %v", err)
	}
	fmt.Println(value)
}

func handleSetSetting(key, value string) {
	if key == "theme" && value != ui.ThemeLight && value != ui.ThemeDark {
		log.Fatalf("Error: theme must be %q or %q", ui.ThemeLight, ui.ThemeDark)
	}
	if err := Client.SetSetting(key, value); err != nil {
		log.Fatalf("Error setting %s: %v", key, err)
	}
	fmt.Println("Setting updated.")
}

func handleWatch(address string) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	events, err := Client.Events(ctx, address)
	if err != nil {
		log.Fatalf("Error connecting to event stream: %v", err)
	}

	fmt.Println("Watching for status changes. Press Ctrl+C to stop.")
	for ev := range events {
		fmt.Printf("%s %s %s -> %s %s\n",
			ev.At.Local().Format("15:04:05"), ev.Address, ev.OldState(), ev.New.State, ui.StatusSummary(ev.New))
	}
}

func handlePing(address string, timeout time.Duration) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	res := slp.NewClient().Query(ctx, address, timeout)
	fmt.Printf("%s %s %s\n", ui.StatusIcon(res.State), address, ui.StatusSummary(res))
	if !res.IsOnline() {
		os.Exit(1)
	}
}

func handleCheckUpdates() {
	info, err := Client.CheckUpdates()
	if err != nil {
		log.Fatalf("Error checking updates: %v", err)
	}

	fmt.Println("\n--- UPDATE CHECK ---")
	fmt.Printf("Current version: %s\n", info.CurrentVersion)
	fmt.Printf("Latest version:  %s\n", info.LatestVersion)

	if info.UpdateAvailable {
		fmt.Println("\nUpdate available!")
		fmt.Printf("Download it here: %s\n", info.ReleaseURL)
	} else {
		fmt.Println("\nYou are up to date.")
	}
}
