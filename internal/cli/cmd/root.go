package cmd

import (
	"fmt"
	"os"

	"mcwatch/pkg/sdk"

	"github.com/spf13/cobra"
)

var (
	Client  *sdk.Client
	BaseURL string
)

var RootCmd = &cobra.Command{
	Use:   "mcwatch",
	Short: "Watch the status of Minecraft servers",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		Client = sdk.NewClient(BaseURL)
	},
	Run: func(cmd *cobra.Command, args []string) {
		RunDashboard()
	},
}

func Execute(defaultURL string) {
	RootCmd.PersistentFlags().StringVar(&BaseURL, "url", defaultURL, "URL of the mcwatch daemon")

	if err := RootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
