package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLabelsAndUnits(t *testing.T) {
	t.Parallel()

	samples := []Sample{
		{Label: "water", Unit: "p1"},
		{Label: "forest", Unit: "p2"},
	}
	assert.Equal(t, []string{"water", "forest"}, Labels(samples))
	assert.Equal(t, []string{"p1", "p2"}, Units(samples))
}
