package cmd

import (
	"log"

	"mcwatch/internal/cli/ui"
)

func RunDashboard() {
	theme, err := Client.GetSetting("theme")
	if err != nil {
		theme = ui.ThemeLight
	}

	for {
		address, err := ui.RunDashboard(Client, theme)
		if err != nil {
			log.Fatalf("Dashboard error: %v", err)
		}
		if address == "" {
			return
		}
		back, err := ui.RunDetail(Client, address, theme)
		if err != nil {
			log.Fatalf("Detail view error: %v", err)
		}
		if !back {
			return
		}
	}
}
