package renderer

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameGraphRunsEnabledPassesInOrder(t *testing.T) {
	g := NewFrameGraph()
	var ran []string
	for _, name := range []string{PassShadow, PassDepthPrepass, PassForward} {
		g.AddPass(name, func() error {
			ran = append(ran, name)
			return nil
		})
	}
	assert.Equal(t, []string{PassShadow, PassDepthPrepass, PassForward}, g.PassNames())
	assert.Equal(t, 3, g.EnabledPassCount())

	g.SetPassEnabled(PassDepthPrepass, false)
	assert.False(t, g.IsPassEnabled(PassDepthPrepass))
	assert.False(t, g.IsPassEnabled("missing"))
	require.NoError(t, g.Execute())
	assert.Equal(t, []string{PassShadow, PassForward}, ran)
	assert.Equal(t, 2, g.EnabledPassCount())
}

func TestFrameGraphStopsAtFirstError(t *testing.T) {
	g := NewFrameGraph()
	boom := errors.New("boom")
	forwardRan := false
	g.AddPass(PassShadow, func() error { return boom })
	g.AddPass(PassForward, func() error {
		forwardRan = true
		return nil
	})

	err := g.Execute()
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "shadow pass")
	assert.False(t, forwardRan)

	g.Clear()
	assert.Empty(t, g.PassNames())
	assert.NoError(t, g.Execute())
}
