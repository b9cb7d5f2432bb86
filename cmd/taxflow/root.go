package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "taxflow",
	Short: "Taxflow runs the IPTU payment workflow",
	Long: `Taxflow drives multi-turn IPTU payment conversations against the
municipal tax service: property lookup, guide and installment selection,
confirmation and DARM slip emission.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().StringP("config", "c", "", "Path to the YAML config file")
	rootCmd.PersistentFlags().String("store", "", "Session store backend: memory, file or redis (overrides config)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn or error (overrides config)")
}
