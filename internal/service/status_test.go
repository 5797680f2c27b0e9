package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusControllerStartsConservative(t *testing.T) {
	sc := NewStatusController()

	snap := sc.Snapshot()
	assert.False(t, snap.ModelLoaded)
	assert.False(t, snap.PineconeConnected)
	assert.True(t, snap.FallbackMode)
}

func TestStatusControllerFallbackDerivation(t *testing.T) {
	tests := []struct {
		name     string
		model    bool
		vector   bool
		fallback bool
	}{
		{"both healthy", true, true, false},
		{"model down", false, true, true},
		{"vector down", true, false, true},
		{"both down", false, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sc := NewStatusController()
			sc.SetModelLoaded(tt.model)
			sc.SetVectorConnected(tt.vector)

			assert.Equal(t, tt.fallback, sc.FallbackMode())

			snap := sc.Snapshot()
			assert.Equal(t, tt.model, snap.ModelLoaded)
			assert.Equal(t, tt.vector, snap.PineconeConnected)
			assert.Equal(t, tt.fallback, snap.FallbackMode)
		})
	}
}

func TestStatusControllerTransitions(t *testing.T) {
	sc := NewStatusController()

	sc.SetModelLoaded(true)
	sc.SetVectorConnected(true)
	assert.False(t, sc.FallbackMode())

	sc.SetVectorConnected(false)
	assert.True(t, sc.FallbackMode())

	sc.SetVectorConnected(true)
	assert.False(t, sc.FallbackMode())
}
