package main

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/veripass/veripass/pkg/db"
	"github.com/veripass/veripass/pkg/metrics"
	gormstore "github.com/veripass/veripass/pkg/server/store/gorm"
	"github.com/veripass/veripass/pkg/sweep"
	"github.com/veripass/veripass/pkg/vault"
)

// sweepCmd represents the sweep command
var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Expire overdue enrollments and boarding passes",
	Long: `Run one expiry sweep and exit.

The running server sweeps on its own schedule; this command is for cron-style
deployments and for forcing a sweep by hand.

Example:
  veripassctl sweep`,
	Run: func(cmd *cobra.Command, args []string) {
		if os.Getenv("DATABASE_URL") == "" {
			fmt.Fprintln(os.Stderr, "DATABASE_URL environment variable is required")
			os.Exit(1)
		}

		// The sweep only flips status columns, but the connection carries the
		// vault so model hooks behave the same as in the server.
		var v *vault.Vault
		if dataKeyB64 := os.Getenv("VERIPASS_DATA_KEY"); dataKeyB64 != "" {
			dataKey, err := base64.StdEncoding.DecodeString(dataKeyB64)
			if err != nil {
				fmt.Fprintln(os.Stderr, "Bad VERIPASS_DATA_KEY:", err)
				os.Exit(1)
			}
			v, err = vault.New(dataKey)
			if err != nil {
				fmt.Fprintln(os.Stderr, "Unable to initiate vault:", err)
				os.Exit(1)
			}
		}

		conn, err := db.Connect(db.Config{Vault: v})
		if err != nil {
			fmt.Fprintln(os.Stderr, "Unable to connect to DB:", err)
			os.Exit(1)
		}

		sweeper := sweep.New(
			gormstore.NewEnrollmentsStore(conn),
			gormstore.NewPassesStore(conn),
			metrics.New(),
		)

		result, err := sweeper.Sweep(context.Background())
		if err != nil {
			fmt.Fprintln(os.Stderr, "Sweep failed:", err)
			os.Exit(1)
		}

		fmt.Printf("Expired %d enrollment(s) and %d boarding pass(es)\n",
			result.Enrollments, result.Passes)
	},
}

func init() {
	rootCmd.AddCommand(sweepCmd)
}
