package jsonfile

import (
	"log/slog"

	"github.com/goxtopia/PaiCard-Trade-card-generator/internal/repository"
)

// Open builds a file-backed store from the three document paths.
func Open(cardsPath, packsPath, settingsPath string, logger *slog.Logger) (*repository.Store, error) {
	cards, err := NewCardRepository(cardsPath, logger)
	if err != nil {
		return nil, err
	}
	packs, err := NewPackRepository(packsPath, logger)
	if err != nil {
		return nil, err
	}
	settings, err := NewSettingsRepository(settingsPath)
	if err != nil {
		return nil, err
	}
	return repository.NewStore(cards, packs, settings), nil
}
