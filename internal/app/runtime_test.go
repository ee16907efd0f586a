package app

import (
	"testing"

	"github.com/stretchr/testify/require"

	_ "github.com/innsuite/innsuite/internal/testing/guard"
)

func TestInTestModeUnderGuard(t *testing.T) {
	RefreshTestMode()
	require.True(t, InTestMode())
}

func TestRefreshTestMode(t *testing.T) {
	t.Setenv(testModeEnv, "0")
	RefreshTestMode()
	require.False(t, InTestMode())

	t.Setenv(testModeEnv, "1")
	RefreshTestMode()
	require.True(t, InTestMode())
}
