// Command chessgo-uci runs the engine behind the UCI protocol on stdio.
package main

import (
	"fmt"
	"os"

	"github.com/hailam/chessplay/internal/config"
	"github.com/hailam/chessplay/internal/uci"

	"github.com/op/go-logging"
	"github.com/pkg/profile"
	"github.com/spf13/cobra"
)

var (
	configPath string
	hashMB     int
	logLevel   string
	cpuProfile string
)

func main() {
	root := &cobra.Command{
		Use:   "chessgo-uci",
		Short: "UCI chess engine",
		RunE:  run,
	}

	root.Flags().StringVar(&configPath, "config", "", "path to chessgo.toml")
	root.Flags().IntVar(&hashMB, "hash", 0, "transposition table size in MB (overrides config)")
	root.Flags().StringVar(&logLevel, "log-level", "", "log level: DEBUG, INFO, WARNING, ERROR (overrides config)")
	root.Flags().StringVar(&cpuProfile, "cpuprofile", "", "write a CPU profile to this path")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if hashMB > 0 {
		cfg.HashMB = hashMB
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}

	configureLogging(cfg.LogLevel)

	if cpuProfile != "" {
		defer profile.Start(profile.CPUProfile, profile.ProfilePath(cpuProfile)).Stop()
	}

	eng := uci.EngineFromConfig(cfg)
	protocol := uci.New(eng)
	protocol.Run()
	return nil
}

func configureLogging(level string) {
	backend := logging.NewLogBackend(os.Stderr, "", 0)
	formatter := logging.MustStringFormatter(
		`%{time:15:04:05.000} %{level:-7.7s} %{module}: %{message}`,
	)
	backendFormatter := logging.NewBackendFormatter(backend, formatter)
	leveled := logging.AddModuleLevel(backendFormatter)

	lvl, err := logging.LogLevel(level)
	if err != nil {
		lvl = logging.INFO
	}
	leveled.SetLevel(lvl, "")
	logging.SetBackend(leveled)
}
