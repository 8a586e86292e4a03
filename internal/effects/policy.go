// Package effects decorates cards with a visual effect and color theme drawn
// from per-rarity tables.
package effects

import (
	"github.com/goxtopia/PaiCard-Trade-card-generator/constants"
	"github.com/goxtopia/PaiCard-Trade-card-generator/internal/common"
)

// Tier holds the draw table for one rarity.
type Tier struct {
	// EffectChance is the probability of a non-empty effect tag.
	EffectChance float64
	Effects      []string
	Themes       []string
}

// DefaultTiers is the built-in table.
var DefaultTiers = map[constants.Rarity]Tier{
	constants.RarityN: {
		EffectChance: 0.10,
		Effects:      []string{"shine"},
		Themes:       []string{"theme-gray", "theme-green"},
	},
	constants.RarityR: {
		EffectChance: 0.30,
		Effects:      []string{"shine", "sparkle"},
		Themes:       []string{"theme-blue", "theme-green"},
	},
	constants.RaritySR: {
		EffectChance: 0.60,
		Effects:      []string{"sparkle", "holo", "glow"},
		Themes:       []string{"theme-purple", "theme-blue"},
	},
	constants.RaritySSR: {
		EffectChance: 0.90,
		Effects:      []string{"holo", "rainbow", "glow", "flame"},
		Themes:       []string{"theme-gold", "theme-purple", "theme-red"},
	},
	constants.RarityUR: {
		EffectChance: 1.0,
		Effects:      []string{"rainbow", "prism", "galaxy", "flame"},
		Themes:       []string{"theme-rainbow", "theme-gold", "theme-black"},
	},
}

type Policy struct {
	tiers map[constants.Rarity]Tier
	rnd   *common.Rand
}

func NewPolicy(rnd *common.Rand) *Policy {
	return NewPolicyWithTiers(DefaultTiers, rnd)
}

func NewPolicyWithTiers(tiers map[constants.Rarity]Tier, rnd *common.Rand) *Policy {
	if rnd == nil {
		rnd = common.NewTimeSeededRand()
	}
	return &Policy{tiers: tiers, rnd: rnd}
}

// Choose draws an effect (possibly empty) and a theme for a rarity. Unknown
// rarities use the N table.
func (p *Policy) Choose(rarity constants.Rarity) (effect, theme string) {
	tier, ok := p.tiers[rarity]
	if !ok {
		tier = p.tiers[constants.RarityN]
	}
	if roll := p.rnd.Float64(); roll < tier.EffectChance {
		effect = common.Pick(p.rnd, tier.Effects)
	}
	theme = common.Pick(p.rnd, tier.Themes)
	return effect, theme
}
