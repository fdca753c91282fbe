package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewRunID_Format(t *testing.T) {
	at := time.Date(2026, 8, 30, 14, 23, 55, 17_000_000, time.UTC)
	require.Equal(t, "20260830-142355.017", NewRunID(at))
}

func TestNewRunID_CollisionGetsSuffix(t *testing.T) {
	at := time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC)

	first := NewRunID(at)
	second := NewRunID(at)
	third := NewRunID(at)

	require.NotEqual(t, first, second)
	require.NotEqual(t, second, third)
	require.Equal(t, first+"-1", second)
	require.Equal(t, first+"-2", third)
}
