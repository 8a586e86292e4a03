package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/goxtopia/PaiCard-Trade-card-generator/internal/ingest"
)

func newIngestCmd(c *cli) *cobra.Command {
	var cardBack string
	var hidden bool
	cmd := &cobra.Command{
		Use:   "ingest <file-or-dir>...",
		Short: "Turn image files into cards",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			failed := 0
			for _, path := range args {
				fi, err := os.Stat(path)
				if err != nil {
					failed++
					fmt.Fprintf(out, "%s %s: %v\n", errorColor.Sprint("FAIL"), path, err)
					continue
				}
				if fi.IsDir() {
					results, stats, err := c.app.Pipeline.IngestDirectory(ctx, path, cardBack, true)
					if err != nil {
						return err
					}
					for _, r := range results {
						if r.Err != "" {
							fmt.Fprintf(out, "%s %s: %s\n", errorColor.Sprint("FAIL"), r.Path, r.Err)
							continue
						}
						fmt.Fprintf(out, "%s %s -> %s\n", outcomeLabel(r.Outcome), r.Path, r.Fingerprint)
					}
					failed += int(stats.Failed)
					continue
				}
				card, outcome, err := c.app.Pipeline.IngestPath(ctx, path, cardBack, hidden)
				if err != nil {
					failed++
					fmt.Fprintf(out, "%s %s: %v\n", errorColor.Sprint("FAIL"), path, err)
					continue
				}
				fmt.Fprintf(out, "%s %s -> %s\n", outcomeLabel(outcome), path, formatCardLine(card))
			}
			if failed > 0 {
				return fmt.Errorf("%d file(s) failed", failed)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&cardBack, "card-back", "", "card-back URL to bind, e.g. /static/card_backs/classic.png")
	cmd.Flags().BoolVar(&hidden, "hidden", false, "store cards hidden (files only; directories are always visible)")
	return cmd
}

func newCardsCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "cards",
		Short: "List visible cards",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cards, err := c.app.Catalog.ListVisible(cmd.Context())
			if err != nil {
				return err
			}
			printCards(cmd.OutOrStdout(), cards)
			return nil
		},
	}
}

func newPacksCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "packs",
		Short: "List packs that have not been opened",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			packs, err := c.app.Packs.ListPending(cmd.Context())
			if err != nil {
				return err
			}
			printPacks(cmd.OutOrStdout(), packs)
			return nil
		},
	}
}

func newOpenCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "open <pack-id>",
		Short: "Open a ready pack and reveal its cards",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cards, err := c.app.Packs.Open(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printCards(cmd.OutOrStdout(), cards)
			return nil
		},
	}
}

func newExportCmd(c *cli) *cobra.Command {
	var outPath string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write visible cards to an XLSX workbook",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			xlsx, err := c.app.Exporter.ExportCardsXLSX(cmd.Context())
			if err != nil {
				return err
			}
			if err := os.WriteFile(outPath, xlsx, 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s wrote %d bytes to %s\n", okColor.Sprint("OK"), len(xlsx), outPath)
			return nil
		},
	}
	cmd.Flags().StringVarP(&outPath, "out", "o", "cards.xlsx", "output file")
	return cmd
}

func outcomeLabel(o ingest.Outcome) string {
	switch o {
	case ingest.OutcomeCreated, ingest.OutcomeRegenerated:
		return okColor.Sprint("NEW ")
	default:
		return dimColor.Sprint("SEEN")
	}
}
