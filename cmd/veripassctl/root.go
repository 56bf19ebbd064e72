package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "veripassctl",
	Short: "Veripass server command line interface",
	Long: `veripassctl manages the Veripass biometric boarding server: running the
server, migrating the database, generating keys, and minting agent tokens.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func main() {
	Execute()
}
