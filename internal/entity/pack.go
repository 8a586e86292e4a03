package entity

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/goxtopia/PaiCard-Trade-card-generator/constants"
	"github.com/goxtopia/PaiCard-Trade-card-generator/internal/common"
)

// Pack groups up to PACK_SIZE uploads revealed together on open.
type Pack struct {
	ID        string               `json:"id"`
	Status    constants.PackStatus `json:"status"`
	Cards     []string             `json:"cards"`
	CreatedAt time.Time            `json:"created_at"`
	CardBack  string               `json:"card_back"`
}

// NewPack returns an empty pack in processing state.
func NewPack(cardBack string, now time.Time) Pack {
	return Pack{
		ID:        uuid.NewString(),
		Status:    constants.PackStatusProcessing,
		Cards:     []string{},
		CreatedAt: now,
		CardBack:  cardBack,
	}
}

// MarkReady stores the member fingerprints and moves the pack to ready.
func (p *Pack) MarkReady(fingerprints []string) error {
	if err := p.advance(constants.PackStatusReady); err != nil {
		return err
	}
	p.Cards = append([]string{}, fingerprints...)
	return nil
}

// MarkOpened moves a ready pack to opened. Opening an opened pack again is
// accepted and leaves it opened.
func (p *Pack) MarkOpened() error {
	if p.Status == constants.PackStatusOpened {
		return nil
	}
	return p.advance(constants.PackStatusOpened)
}

// advance applies one forward step of processing -> ready -> opened.
func (p *Pack) advance(next constants.PackStatus) error {
	if !p.Status.CanAdvanceTo(next) {
		return common.InvalidStatef("pack %s is %s, cannot become %s", p.ID, p.Status, next)
	}
	p.Status = next
	return nil
}

// Openable reports whether background processing has finished.
func (p *Pack) Openable() bool {
	return p.Status == constants.PackStatusReady || p.Status == constants.PackStatusOpened
}

func (p *Pack) String() string {
	return fmt.Sprintf("pack(%s, %s, %d cards)", p.ID, p.Status, len(p.Cards))
}
