package main

import (
	"mcwatch/internal/cli/cmd"
	"mcwatch/internal/config"
)

func main() {
	config.LoadEnv()
	cmd.Execute(config.GetURL())
}
