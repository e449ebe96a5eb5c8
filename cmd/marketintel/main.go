package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/stebou/marketintel/config"
	"github.com/stebou/marketintel/internal/intel/core"
	"github.com/stebou/marketintel/internal/intel/telemetry"
	srv "github.com/stebou/marketintel/internal/server"
)

func main() {
	var root = &cobra.Command{Use: "marketintel"}

	root.AddCommand(serveCMD(), analyzeCMD())
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCMD() *cobra.Command {
	var cfgPath string
	var addr string
	var serve = &cobra.Command{
		Use:   "serve",
		Short: "Run HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadConfig(cfgPath)
			if addr != "" {
				cfg.Server.Address = addr
			}
			return srv.Run(cfg)
		},
	}
	serve.Flags().StringVar(&addr, "addr", "", "listen address (overrides config)")
	serve.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default is .)")

	return serve
}

func analyzeCMD() *cobra.Command {
	var cfgPath string
	var requestPath string
	var analyze = &cobra.Command{
		Use:   "analyze",
		Short: "Run one intelligence analysis from a request file and print the report",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadConfig(cfgPath)

			payload, err := os.ReadFile(requestPath)
			if err != nil {
				return fmt.Errorf("read request: %w", err)
			}
			var req core.AnalysisRequest
			if err := json.Unmarshal(payload, &req); err != nil {
				return fmt.Errorf("decode request: %w", err)
			}

			tele := telemetry.NewTelemetry(cfg.Telemetry, nil)
			engine, err := core.NewEngine(cfg, tele)
			if err != nil {
				return err
			}

			result, err := engine.Analyze(cmd.Context(), req)
			if err != nil {
				return err
			}

			out, err := json.MarshalIndent(result, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}
	analyze.Flags().StringVarP(&requestPath, "request", "r", "request.json", "analysis request JSON file")
	analyze.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default is .)")
	_ = analyze.MarkFlagRequired("request")

	return analyze
}
