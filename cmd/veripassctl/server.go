package main

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/veripass/veripass/pkg/config"
	"github.com/veripass/veripass/pkg/credential"
	"github.com/veripass/veripass/pkg/db"
	"github.com/veripass/veripass/pkg/gateway"
	"github.com/veripass/veripass/pkg/gateway/simulator"
	"github.com/veripass/veripass/pkg/metrics"
	"github.com/veripass/veripass/pkg/server"
	"github.com/veripass/veripass/pkg/server/endpoints"
	gormstore "github.com/veripass/veripass/pkg/server/store/gorm"
	"github.com/veripass/veripass/pkg/sweep"
	"github.com/veripass/veripass/pkg/vault"
)

func defaultBindAddress() string {
	if addr := os.Getenv("BIND_ADDRESS"); addr != "" {
		return addr
	}
	return "0.0.0.0"
}

func defaultPort() string {
	if port := os.Getenv("PORT"); port != "" {
		return port
	}
	return "8000"
}

func defaultPortInt() int {
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			return p
		}
	}
	return 8000
}

// serverCmd represents the server command
var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Run the Veripass application server",
	Long: `Run the Veripass application server

To run the server requires the environment variables VERIPASS_DATA_KEY,
VERIPASS_AGENT_TOKEN_SECRET and DATABASE_URL.

By default, database migrations are run on startup. Use --no-migrate to skip.

The server reloads its configuration file on SIGHUP; see
'veripassctl configuration apply'.`,
	Run: func(cmd *cobra.Command, args []string) {
		// Validate required environment variables first (fail fast)
		dataKeyB64, ok := os.LookupEnv("VERIPASS_DATA_KEY")
		if !ok {
			fmt.Fprintln(os.Stderr, "VERIPASS_DATA_KEY environment variable is required")
			os.Exit(1)
		}

		agentSecret := os.Getenv("VERIPASS_AGENT_TOKEN_SECRET")
		if agentSecret == "" {
			fmt.Fprintln(os.Stderr, "VERIPASS_AGENT_TOKEN_SECRET environment variable is required")
			os.Exit(1)
		}

		if os.Getenv("DATABASE_URL") == "" {
			fmt.Fprintln(os.Stderr, "DATABASE_URL environment variable is required")
			os.Exit(1)
		}

		// Run migrations unless --no-migrate is set
		noMigrate, _ := cmd.Flags().GetBool("no-migrate")
		if !noMigrate {
			log.Println("Running database migrations...")
			if err := runMigrations(); err != nil {
				fmt.Fprintf(os.Stderr, "Migration failed: %v\n", err)
				os.Exit(1)
			}
		}

		dataKey, err := base64.StdEncoding.DecodeString(dataKeyB64)
		if err != nil {
			fmt.Println("Bad VERIPASS_DATA_KEY:", err)
			os.Exit(1)
		}

		v, err := vault.New(dataKey)
		if err != nil {
			fmt.Println("Unable to initiate vault:", err)
			os.Exit(1)
		}

		cfg := config.Get()
		if err := cfg.Validate(); err != nil {
			fmt.Println("Invalid configuration:", err)
			os.Exit(1)
		}

		conn, err := db.Connect(db.Config{Vault: v})
		if err != nil {
			fmt.Println("Unable to connect to DB:", err)
			os.Exit(1)
		}

		// The simulated provider stands in for the external vision service.
		// A production deployment swaps in a real gateway.Provider here.
		seed, _ := cmd.Flags().GetInt64("provider-seed")
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		m := metrics.New()
		g := gateway.New(
			simulator.New(seed),
			cfg.ProviderTimeoutDuration(),
			cfg.ProviderRetries,
		).WithMetrics(m)

		codec := credential.NewCodec(v)

		enrollments := gormstore.NewEnrollmentsStore(conn)
		passes := gormstore.NewPassesStore(conn)
		logs := gormstore.NewCheckInLogsStore(conn)
		health := gormstore.NewHealthStore(conn)

		host, _ := cmd.Flags().GetString("bind-address")
		port, _ := cmd.Flags().GetString("port")
		s := server.NewServer(
			v, codec, g, conn, cfg, m,
			enrollments, passes, logs, health,
			[]byte(agentSecret), host, port,
		)

		endpoints.RegisterAll(s)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		sweeper := sweep.New(enrollments, passes, m)
		go sweeper.Run(ctx, cfg.SweepIntervalDuration(), func(err error) {
			log.Println("Expiry sweep failed:", err)
		})

		// Optionally follow the config file instead of waiting for SIGHUP.
		if watch, _ := cmd.Flags().GetBool("watch-config"); watch {
			go func() {
				if err := config.Watch(ctx, nil); err != nil {
					log.Println("Configuration watch stopped:", err)
				}
			}()
		}

		// SIGHUP reloads the configuration file without a restart.
		hup := make(chan os.Signal, 1)
		signal.Notify(hup, syscall.SIGHUP)
		go func() {
			for range hup {
				if err := config.Reload(); err != nil {
					log.Println("Configuration reload failed:", err)
					continue
				}
				log.Println("Configuration reloaded")
			}
		}()

		log.Printf("Running server at http://%s:%s...\n", host, port)
		log.Fatal(s.Start())
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)

	serverCmd.Flags().StringP("port", "p", defaultPort(), "server listen port")
	serverCmd.Flags().StringP("bind-address", "b", defaultBindAddress(), "server bind address")
	serverCmd.Flags().Bool("no-migrate", false, "skip running database migrations on start")
	serverCmd.Flags().Int64("provider-seed", 0, "seed for the simulated verification provider (0 = random)")
	serverCmd.Flags().Bool("watch-config", false, "reload configuration when the config file changes")
}
