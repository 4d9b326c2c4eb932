package main

import (
	"github.com/spf13/cobra"

	"github.com/kevinchung58/Paper2Poster/internal/infrastructure/config"
	"github.com/kevinchung58/Paper2Poster/internal/infrastructure/server"
)

func newServeCmd() *cobra.Command {
	var host, port string
	var dev bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the studio HTTP server",
		Long: `Start the studio HTTP server.

The server exposes:
  - /session/...  REST operations on the live poster
  - /stream       WebSocket snapshot push
  - /health       studio and poster service status
  - /metrics      Prometheus metrics

Examples:
  studio serve                      # listen on 0.0.0.0:8090
  studio serve --port 9000 --dev    # colored debug logs`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if host != "" {
				cfg.Server.Host = host
			}
			if port != "" {
				cfg.Server.Port = port
			}
			if dev {
				cfg.Logging.Development = true
			}

			srv, err := server.NewServer(cfg, version)
			if err != nil {
				return err
			}
			return srv.Run(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&host, "host", "", "host to bind to (overrides STUDIO_HOST)")
	cmd.Flags().StringVar(&port, "port", "", "port to listen on (overrides STUDIO_PORT)")
	cmd.Flags().BoolVar(&dev, "dev", false, "development logging")
	return cmd
}

// loadConfig reads the environment and applies the persistent flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if api, _ := cmd.Flags().GetString("api"); api != "" {
		cfg.PosterAPI.URL = api
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.Logging.Level = level
	}
	return cfg, nil
}
