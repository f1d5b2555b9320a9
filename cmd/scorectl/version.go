package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Se fija en el build con -ldflags "-X main.version=...".
var version = "unknown"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Muestra la version",
	Run: func(_ *cobra.Command, _ []string) {
		fmt.Printf("%s version: %s\n", name, version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
