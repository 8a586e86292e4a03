package entity

import (
	"path"
	"time"

	"github.com/goxtopia/PaiCard-Trade-card-generator/constants"
)

// UploadsURLPrefix is the public path under which stored images are served.
const UploadsURLPrefix = "/uploads/"

// Card represents a generated trading card keyed by content fingerprint.
type Card struct {
	MD5         string           `json:"md5"`
	Filename    string           `json:"filename"`
	ImageURL    string           `json:"image_url"`
	Rarity      constants.Rarity `json:"rarity"`
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Atk         string           `json:"atk"`
	Def         string           `json:"def"`
	CardBack    string           `json:"card_back"`
	CreatedAt   time.Time        `json:"created_at"`
	EffectType  string           `json:"effect_type"`
	ColorTheme  string           `json:"color_theme"`
	Hidden      bool             `json:"hidden"`
}

// ImageURLFor returns the public reference of a stored file.
func ImageURLFor(filename string) string {
	return path.Join(UploadsURLPrefix, filename)
}

// Rebind updates only the mutable binding fields. An empty card-back leaves
// the card untouched.
func (c *Card) Rebind(cardBack string, hidden bool) bool {
	if cardBack == "" {
		return false
	}
	c.CardBack = cardBack
	c.Hidden = hidden
	return true
}
