package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goxtopia/PaiCard-Trade-card-generator/constants"
	"github.com/goxtopia/PaiCard-Trade-card-generator/internal/common"
)

func TestPack_Lifecycle(t *testing.T) {
	p := NewPack("/static/card_backs/a.png", time.Now())
	assert.Equal(t, constants.PackStatusProcessing, p.Status)
	assert.False(t, p.Openable())

	err := p.MarkOpened()
	require.ErrorIs(t, err, common.ErrInvalidState)
	assert.Equal(t, constants.PackStatusProcessing, p.Status)

	require.NoError(t, p.MarkReady([]string{"a", "b"}))
	assert.Equal(t, constants.PackStatusReady, p.Status)
	assert.Equal(t, []string{"a", "b"}, p.Cards)

	err = p.MarkReady([]string{"c"})
	require.ErrorIs(t, err, common.ErrInvalidState)
	assert.Equal(t, []string{"a", "b"}, p.Cards, "members are fixed once ready")

	require.NoError(t, p.MarkOpened())
	require.NoError(t, p.MarkOpened(), "re-open is accepted")
	assert.Equal(t, constants.PackStatusOpened, p.Status)

	require.ErrorIs(t, p.MarkReady(nil), common.ErrInvalidState)
	assert.Equal(t, constants.PackStatusOpened, p.Status)
}
