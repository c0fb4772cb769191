package cmd

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/vtsim/vtsim/sim/shop"
)

var (
	// CLI flags for the scenario run
	configPath  string // path to a yaml scenario config (optional)
	logLevel    string // log verbosity level
	machines    int    // number of machines (overrides config)
	technicians int    // number of shared repair technicians (overrides config)
	horizon     int64  // simulated run length in ticks (overrides config)
	seed        int64  // master RNG seed (overrides config)
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "vtsim",
	Short: "Virtual-time cooperative simulation kit",
}

// runCmd executes the machine-shop scenario using parameters from the
// config file, with CLI flags taking precedence.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the machine-shop scenario",
	Run: func(cmd *cobra.Command, args []string) {
		// Set up logging
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)

		cfg := shop.DefaultConfig()
		if configPath != "" {
			cfg, err = shop.LoadConfig(configPath)
			if err != nil {
				logrus.Fatalf("Could not load scenario config: %v", err)
			}
		}
		if cmd.Flags().Changed("machines") {
			cfg.Machines = machines
		}
		if cmd.Flags().Changed("technicians") {
			cfg.Technicians = technicians
		}
		if cmd.Flags().Changed("horizon") {
			cfg.Horizon = horizon
		}
		if cmd.Flags().Changed("seed") {
			cfg.Seed = seed
		}

		logrus.Infof("Starting machine shop: %d machines, %d technicians, horizon=%d ticks, seed=%d",
			cfg.Machines, cfg.Technicians, cfg.Horizon, cfg.Seed)

		s, err := shop.New(cfg)
		if err != nil {
			logrus.Fatalf("Invalid scenario: %v", err)
		}
		clock := s.Run()
		s.Report(clock)
	},
}

func init() {
	runCmd.Flags().StringVar(&configPath, "config", "", "Path to yaml scenario config")
	runCmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	runCmd.Flags().IntVar(&machines, "machines", 10, "Number of machines")
	runCmd.Flags().IntVar(&technicians, "technicians", 1, "Number of shared repair technicians")
	runCmd.Flags().Int64Var(&horizon, "horizon", 40000, "Simulated run length in ticks")
	runCmd.Flags().Int64Var(&seed, "seed", 42, "Master RNG seed")

	rootCmd.AddCommand(runCmd)
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
