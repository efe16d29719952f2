package main

import (
	"github.com/Cyclone1070/kosuke/internal/logging"
	"github.com/Cyclone1070/kosuke/internal/server"
	"github.com/Cyclone1070/kosuke/internal/tool/project"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newServeCmd(deps Dependencies, flags *globalFlags) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the agent over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(deps, flags)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}

			logger, err := logging.New(cfg.Log)
			if err != nil {
				return err
			}
			defer logger.Sync()

			a, err := newApp(cmd.Context(), deps, cfg, logger, project.NewManager(cfg.Tools))
			if err != nil {
				return err
			}
			defer a.Close()

			srv, err := server.New(server.Options{
				Run:      a.run,
				Actions:  a.store,
				Observer: a.metrics,
				Gatherer: a.registry,
				Logger:   logger.Named("server"),
			})
			if err != nil {
				return err
			}

			logger.Info("starting server",
				zap.String("addr", cfg.Server.Addr),
				zap.String("projects_dir", cfg.Tools.ProjectsDir))
			return srv.ListenAndServe(cmd.Context(), cfg.Server.Addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	return cmd
}
