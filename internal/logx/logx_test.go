package logx

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// The configured format overrides terminal auto-detection, except when it
// is "auto" (or anything unrecognized), which defers to isTerminal.
func TestResolvePretty(t *testing.T) {
	require.True(t, resolvePretty("console", false))
	require.False(t, resolvePretty("json", true))
	require.True(t, resolvePretty("auto", true))
	require.False(t, resolvePretty("auto", false))
	require.True(t, resolvePretty("", true))
}
