package export

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"github.com/goxtopia/PaiCard-Trade-card-generator/internal/entity"
)

// SheetName is the worksheet holding the card rows.
const SheetName = "Cards"

// CardLister returns the cards to export.
type CardLister interface {
	ListVisible(ctx context.Context) ([]entity.Card, error)
}

// Service produces XLSX bytes for the card catalog.
type Service struct {
	cards  CardLister
	logger *slog.Logger
}

func NewService(cards CardLister, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{cards: cards, logger: logger}
}

var headers = []string{
	"Created At",
	"MD5",
	"Name",
	"Rarity",
	"ATK",
	"DEF",
	"Effect",
	"Color Theme",
	"Card Back",
	"Description",
	"Image URL",
}

// ExportCardsXLSX returns a workbook with one row per visible card, oldest first.
func (s *Service) ExportCardsXLSX(ctx context.Context) ([]byte, error) {
	start := time.Now()

	cards, err := s.cards.ListVisible(ctx)
	if err != nil {
		return nil, fmt.Errorf("list cards: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return nil, err
	}
	activeIndex, _ := f.GetSheetIndex(SheetName)
	f.SetActiveSheet(activeIndex)

	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(SheetName, cell, h)
	}

	for i, c := range cards {
		row := i + 2
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(SheetName, cell, v)
		}
		if !c.CreatedAt.IsZero() {
			write(1, c.CreatedAt.UTC().Format(time.RFC3339))
		}
		write(2, c.MD5)
		write(3, c.Name)
		write(4, string(c.Rarity))
		write(5, statValue(c.Atk))
		write(6, statValue(c.Def))
		write(7, c.EffectType)
		write(8, c.ColorTheme)
		write(9, c.CardBack)
		write(10, truncate(c.Description, 240))
		write(11, c.ImageURL)
	}

	_ = f.SetColWidth(SheetName, "A", "A", 22) // created
	_ = f.SetColWidth(SheetName, "B", "B", 34) // md5
	_ = f.SetColWidth(SheetName, "C", "C", 28)
	_ = f.SetColWidth(SheetName, "D", "F", 8)
	_ = f.SetColWidth(SheetName, "G", "I", 18)
	_ = f.SetColWidth(SheetName, "J", "J", 60) // description
	_ = f.SetColWidth(SheetName, "K", "K", 48)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"rows", len(cards),
		"bytes", buf.Len(),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

// statValue writes numeric stats as numbers so the sheet can sort them.
func statValue(s string) any {
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return s
}

func truncate(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n-1]) + "…"
}
