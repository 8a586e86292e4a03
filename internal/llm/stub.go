package llm

import (
	"context"
	"strconv"
	"time"

	"github.com/goxtopia/PaiCard-Trade-card-generator/constants"
	"github.com/goxtopia/PaiCard-Trade-card-generator/internal/common"
)

var stubNames = []string{
	"Blue-Eyes White Developer",
	"Dark Magician of Code",
	"Pot of Greed (But for RAM)",
	"Infinite Loop Dragon",
	"Bug Squash Knight",
	"The Great Firewall",
	"Quantum Cat",
}

var stubDescriptions = []string{
	"When this card is summoned, you can special summon one 'Stack Overflow' token to your opponent's field.",
	"Flip: Destroy all bugs on the field. If you do, draw 2 cards from your repository.",
	"Cannot be destroyed by syntax errors. Once per turn, you can negate a compilation failure.",
	"This card gains 500 ATK for every unclosed parenthesis in your graveyard.",
	"Pay 1000 LP; force your opponent to refactor their entire deck.",
	"When an opponent declares an attack, you can banish this card to restart the server.",
	"If this card is in the superposition state, it is both alive and dead until observed.",
}

// StubAnalyzer returns random attributes after a simulated delay. It never fails.
type StubAnalyzer struct {
	rnd   *common.Rand
	delay time.Duration
}

func NewStubAnalyzer(rnd *common.Rand, delay time.Duration) *StubAnalyzer {
	if rnd == nil {
		rnd = common.NewTimeSeededRand()
	}
	return &StubAnalyzer{rnd: rnd, delay: delay}
}

func (s *StubAnalyzer) Name() string { return "stub" }

func (s *StubAnalyzer) Analyze(ctx context.Context, _ AnalyzeRequest) (CardAttributes, error) {
	return s.Generate(ctx), nil
}

// Generate waits for the configured delay (or ctx) and draws a card.
func (s *StubAnalyzer) Generate(ctx context.Context) CardAttributes {
	if s.delay > 0 {
		t := time.NewTimer(s.delay)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
		}
	}
	return CardAttributes{
		Rarity:      common.Pick(s.rnd, constants.AllRarities()),
		Name:        common.Pick(s.rnd, stubNames),
		Description: common.Pick(s.rnd, stubDescriptions),
		Atk:         strconv.Itoa(s.rnd.IntN(501) * 10),
		Def:         strconv.Itoa(s.rnd.IntN(501) * 10),
	}
}
