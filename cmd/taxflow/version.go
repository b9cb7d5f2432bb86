package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lucasmbraga/taxflow"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of taxflow",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("taxflow version %s\n", strings.TrimSpace(taxflow.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
