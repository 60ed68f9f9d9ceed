package main

import (
	"log"

	"github.com/spf13/cobra"

	migratetool "github.com/bubbleteameimei/Bubbles-cafe-sub002/internal/tools/migrate"
	seedtool "github.com/bubbleteameimei/Bubbles-cafe-sub002/internal/tools/seed"
	sessionstool "github.com/bubbleteameimei/Bubbles-cafe-sub002/internal/tools/sessions"
)

func main() {
	root := &cobra.Command{
		Use:           "bubblesctl",
		Short:         "Operational tooling for Bubble's Cafe",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		migratetool.NewRootCommand(),
		seedtool.NewRootCommand(),
		sessionstool.NewRootCommand(),
	)
	if err := root.Execute(); err != nil {
		log.Fatal(err)
	}
}
