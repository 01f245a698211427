package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFoldAssignment(t *testing.T) {
	t.Parallel()

	a, err := NewFoldAssignment(3, []int{0, 1, 2, 0, 1, 2})
	require.NoError(t, err)

	assert.Equal(t, 3, a.K)
	require.Len(t, a.Folds, 3)
	assert.Equal(t, []int{0, 3}, a.Folds[0].Test)
	assert.Equal(t, []int{1, 2, 4, 5}, a.Folds[0].Train)
	assert.Equal(t, []int{2, 5}, a.Folds[2].Test)
	assert.Equal(t, []int{2, 2, 2}, a.Sizes())
}

func TestNewFoldAssignment_CopiesInput(t *testing.T) {
	t.Parallel()

	in := []int{0, 1}
	a, err := NewFoldAssignment(2, in)
	require.NoError(t, err)
	in[0] = 1
	assert.Equal(t, 0, a.Fold[0])
}

func TestNewFoldAssignment_Errors(t *testing.T) {
	t.Parallel()

	_, err := NewFoldAssignment(0, []int{0})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fold count must be positive")

	_, err = NewFoldAssignment(2, []int{0, 2})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "outside [0,2)")
}
