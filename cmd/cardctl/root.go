package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/goxtopia/PaiCard-Trade-card-generator/internal/app"
	"github.com/goxtopia/PaiCard-Trade-card-generator/internal/common"
)

// cli carries the app built for the running command.
type cli struct {
	configPath string
	logLevel   string
	app        *app.App
}

func newRootCmd() (*cobra.Command, *cli) {
	c := &cli{}
	root := &cobra.Command{
		Use:   "cardctl",
		Short: "Operate a card generator data directory",
		Long: `cardctl works directly on the card generator's storage: it ingests images
into cards, lists cards and packs, opens packs and exports the catalog.
It reads the same CONFIG_FILE / environment settings as cardgend.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.open(cmd.Context())
		},
	}
	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "TOML config file (overrides CONFIG_FILE)")
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "warn", "log level: debug|info|warn|error")

	root.AddCommand(
		newIngestCmd(c),
		newCardsCmd(c),
		newPacksCmd(c),
		newOpenCmd(c),
		newExportCmd(c),
	)
	return root, c
}

func (c *cli) open(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if c.configPath != "" {
		if err := os.Setenv("CONFIG_FILE", c.configPath); err != nil {
			return err
		}
	}
	cfg, err := common.LoadConfig()
	if err != nil {
		return err
	}
	cfg.Log.Level = c.logLevel
	logger := common.NewLogger(os.Stderr, cfg.Log)

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	c.app = a
	return nil
}

// close runs even when a command fails so queued packs drain and stores flush.
func (c *cli) close(ctx context.Context) error {
	if c.app == nil {
		return nil
	}
	return c.app.Close(ctx)
}
