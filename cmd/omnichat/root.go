package main

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	omnichat "github.com/Protocol-Lattice/omnichat"
	"github.com/Protocol-Lattice/omnichat/src/config"
	"github.com/Protocol-Lattice/omnichat/src/models"
)

type app struct {
	configPath string
	offline    bool
	provider   string
	logLevel   string
	logFormat  string

	cfg    *config.Config
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:          "omnichat",
		Short:        "Multi-provider AI chat with image and voice support",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load(cmd)
		},
	}

	f := root.PersistentFlags()
	f.StringVarP(&a.configPath, "config", "c", "", "config file (default ./omnichat.yaml)")
	f.BoolVar(&a.offline, "offline", false, "use the dummy provider and disable image and audio")
	f.StringVarP(&a.provider, "provider", "p", "", "text provider: gemini, openai, claude, nvidia, meta, ollama or dummy")
	f.StringVar(&a.logLevel, "log-level", "", "log level override (debug, info, warn, error)")
	f.StringVar(&a.logFormat, "log-format", "", "log format override (text, json)")

	root.AddCommand(
		newServeCmd(a),
		newChatCmd(a),
		newImageCmd(a),
		newSpeakCmd(a),
		newListenCmd(a),
	)
	return root
}

func (a *app) load(cmd *cobra.Command) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if a.logFormat != "" {
		cfg.Log.Format = a.logFormat
	}
	if a.provider != "" {
		cfg.Defaults.Text = a.provider
	}
	if a.offline {
		cfg.Defaults.Text = string(models.Dummy)
		cfg.Providers.Dummy.Enabled = true
		cfg.Image.Enabled = false
		cfg.Audio.Enabled = false
	}
	logger, err := config.NewLogger(cfg.Log, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	slog.SetDefault(logger)
	a.cfg, a.logger = cfg, logger
	return nil
}

func (a *app) build(ctx context.Context, reg prometheus.Registerer) (*omnichat.Stack, error) {
	return omnichat.Build(ctx, a.cfg, reg, a.logger)
}
