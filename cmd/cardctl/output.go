package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"

	"github.com/goxtopia/PaiCard-Trade-card-generator/constants"
	"github.com/goxtopia/PaiCard-Trade-card-generator/internal/entity"
)

var (
	okColor    = color.New(color.FgGreen, color.Bold)
	errorColor = color.New(color.FgRed, color.Bold)
	dimColor   = color.New(color.FgHiBlack)

	rarityColors = map[constants.Rarity]*color.Color{
		constants.RarityN:   color.New(color.FgWhite),
		constants.RarityR:   color.New(color.FgBlue),
		constants.RaritySR:  color.New(color.FgMagenta),
		constants.RaritySSR: color.New(color.FgYellow, color.Bold),
		constants.RarityUR:  color.New(color.FgRed, color.Bold),
	}
)

func rarityLabel(r constants.Rarity) string {
	c, ok := rarityColors[r]
	if !ok {
		return string(r)
	}
	return c.Sprintf("%-3s", r)
}

func formatCardLine(c entity.Card) string {
	return fmt.Sprintf("%s %s %s (ATK %s / DEF %s)", c.MD5, rarityLabel(c.Rarity), color.HiWhiteString(c.Name), c.Atk, c.Def)
}

func printCards(w io.Writer, cards []entity.Card) {
	if len(cards) == 0 {
		fmt.Fprintln(w, dimColor.Sprint("no cards"))
		return
	}
	tw := tabwriter.NewWriter(w, 0, 2, 2, ' ', 0)
	fmt.Fprintln(tw, "MD5\tRARITY\tNAME\tATK\tDEF\tEFFECT\tTHEME")
	for _, c := range cards {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			c.MD5, rarityLabel(c.Rarity), c.Name, c.Atk, c.Def, orDash(c.EffectType), c.ColorTheme)
	}
	_ = tw.Flush()
}

func printPacks(w io.Writer, packs []entity.Pack) {
	if len(packs) == 0 {
		fmt.Fprintln(w, dimColor.Sprint("no pending packs"))
		return
	}
	tw := tabwriter.NewWriter(w, 0, 2, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATUS\tCARDS\tCREATED")
	for _, p := range packs {
		status := string(p.Status)
		if p.Status == constants.PackStatusReady {
			status = okColor.Sprint(status)
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", p.ID, status, len(p.Cards), p.CreatedAt.Local().Format(time.DateTime))
	}
	_ = tw.Flush()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
