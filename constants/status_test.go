package constants

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPackStatus_CanAdvanceTo(t *testing.T) {
	tests := []struct {
		from, to PackStatus
		want     bool
	}{
		{PackStatusProcessing, PackStatusReady, true},
		{PackStatusReady, PackStatusOpened, true},
		{PackStatusProcessing, PackStatusOpened, false},
		{PackStatusReady, PackStatusProcessing, false},
		{PackStatusOpened, PackStatusReady, false},
		{PackStatusReady, PackStatusReady, false},
		{PackStatus("lost"), PackStatusReady, false},
		{PackStatusReady, PackStatus(""), false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanAdvanceTo(tt.to))
		})
	}
}
