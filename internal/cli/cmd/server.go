package cmd

import (
	"fmt"
	"log"
	"strings"

	"mcwatch/internal/cli/ui"
	"mcwatch/pkg/sdk"

	"github.com/spf13/cobra"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Manage tracked servers",
}

var addName string

var serverAddCmd = &cobra.Command{
	Use:   "add [address]",
	Short: "Track a server (host or host:port)",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		handleAdd(args[0], addName)
	},
}

var serverRemoveCmd = &cobra.Command{
	Use:     "remove [address]",
	Aliases: []string{"rm"},
	Short:   "Stop tracking a server",
	Args:    cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		handleRemove(args[0])
	},
}

var serverListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List tracked servers and their last status",
	Run: func(cmd *cobra.Command, args []string) {
		handleList()
	},
}

var serverShowCmd = &cobra.Command{
	Use:   "show [address]",
	Short: "Show version, players and MOTD of a server",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		handleShow(args[0])
	},
}

var serverRenameCmd = &cobra.Command{
	Use:   "rename [address] [name]",
	Short: "Change the display name of a server",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		handleRename(args[0], args[1])
	},
}

func init() {
	serverAddCmd.Flags().StringVar(&addName, "name", "", "Display name (defaults to the address)")

	serverCmd.AddCommand(serverAddCmd, serverRemoveCmd, serverListCmd, serverShowCmd, serverRenameCmd)
	RootCmd.AddCommand(serverCmd)
}

func handleAdd(address, name string) {
	srv, err := Client.AddServer(sdk.AddServerRequest{Address: address, Name: name})
	if err != nil {
		log.Fatalf("Error adding server: %v", err)
	}
	fmt.Printf("Now tracking %s. First poll scheduled.\n", srv.Address)
}

func handleRemove(address string) {
	if err := Client.RemoveServer(address); err != nil {
		log.Fatalf("Error removing server: %v", err)
	}
	fmt.Println("Server removed.")
}

func handleRename(address, name string) {
	srv, err := Client.RenameServer(address, name)
	if err != nil {
		log.Fatalf("Error renaming server: %v", err)
	}
	fmt.Printf("%s is now shown as %q.\n", srv.Address, srv.DisplayName)
}

func handleList() {
	servers, err := Client.ListServers()
	if err != nil {
		log.Fatalf("Error listing servers: %v", err)
	}

	if len(servers) == 0 {
		fmt.Println("No servers tracked. Add one with: mcwatch server add <address>")
		return
	}

	fmt.Println("Servers:")
	for _, s := range servers {
		fmt.Printf("%s %-30s %-8s %s\n", ui.StatusIcon(s.State()), s.Address, s.State(), ui.Summary(s))
	}
}

func handleShow(address string) {
	srv, err := Client.GetServer(address)
	if err != nil {
		log.Fatalf("Error getting server: %v", err)
	}
	printServer(srv)
}

func printServer(s *sdk.Server) {
	fmt.Printf("\n--- %s ---\n", s.DisplayName)
	fmt.Printf("Address: %s\n", s.Address)
	fmt.Printf("State:   %s %s\n", ui.StatusIcon(s.State()), s.State())

	if s.LastPolledAt != nil {
		fmt.Printf("Polled:  %s\n", s.LastPolledAt.Local().Format("2006-01-02 15:04:05"))
	}
	if s.LastStatus == nil {
		fmt.Println("Not polled yet.")
		return
	}

	st := s.LastStatus
	if !st.IsOnline() {
		fmt.Printf("Reason:  %s\n", st.Reason)
		if st.Detail != "" {
			fmt.Printf("Detail:  %s\n", st.Detail)
		}
		return
	}

	fmt.Printf("Version: %s (protocol %d)\n", st.Version, st.Protocol)
	fmt.Printf("Players: %d/%d\n", st.PlayersOnline, st.PlayersMax)
	if len(st.SamplePlayers) > 0 {
		fmt.Printf("Sample:  %s\n", strings.Join(st.SamplePlayers, ", "))
	}
	if st.MOTD != "" {
		fmt.Printf("MOTD:    %s\n", st.MOTD)
	}
	if st.Latency > 0 {
		fmt.Printf("Latency: %s\n", st.Latency)
	}
}
