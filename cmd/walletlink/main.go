package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pipfun/walletlink/internal/config"
	"github.com/pipfun/walletlink/internal/logger"
)

var configFile string

func main() {
	var rootCmd = &cobra.Command{
		Use:   "walletlink",
		Short: "Wallet session and deep-link signing coordinator",
		Long:  "Runs the wallet host API, a development auth server, and profile tooling.",
	}

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(NewServeCmd())
	rootCmd.AddCommand(NewAuthDevCmd())
	rootCmd.AddCommand(NewKeypairCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func setup() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, nil, err
	}
	log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}
