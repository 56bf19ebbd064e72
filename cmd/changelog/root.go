package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "changelog",
	Short: "Keep a Changelog parser and validator",
	Long: `A tool for parsing and validating Keep a Changelog formatted markdown
files. Used by the release pipeline to validate CHANGELOG.md and extract
release notes for tagged versions.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func main() {
	Execute()
}
