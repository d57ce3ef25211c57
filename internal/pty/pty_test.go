package pty_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"gidterm/internal/pty"
)

func TestSpawn_ReadLineThenEOF(t *testing.T) {
	h, err := pty.Spawn("t1", "echo hello", t.TempDir(), nil)
	require.NoError(t, err)

	var lines []string
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		line, ok, err := h.ReadLine()
		require.NoError(t, err)
		if !ok {
			break
		}
		if line != "" {
			lines = append(lines, line)
		}
	}
	require.Contains(t, lines, "hello")

	code, err := h.Wait()
	require.NoError(t, err)
	require.Equal(t, 0, code)
}

func TestSpawn_NonZeroExit(t *testing.T) {
	h, err := pty.Spawn("t1", "exit 7", t.TempDir(), nil)
	require.NoError(t, err)

	for {
		_, ok, err := h.ReadLine()
		require.NoError(t, err)
		if !ok {
			break
		}
	}

	code, err := h.Wait()
	require.NoError(t, err)
	require.Equal(t, 7, code)
}

func TestWriteInput_EchoedByCat(t *testing.T) {
	h, err := pty.Spawn("t1", "cat", t.TempDir(), nil)
	require.NoError(t, err)
	defer h.Kill()

	require.NoError(t, h.WriteInput("marco"))

	line, ok, err := h.ReadLine()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "marco", line)
}

func TestKill_IsIdempotentAndStopsInput(t *testing.T) {
	h, err := pty.Spawn("t1", "cat", t.TempDir(), nil)
	require.NoError(t, err)

	h.Kill()
	h.Kill() // must not panic or block

	require.Error(t, h.WriteInput("anything"))
}

func TestHistory_BoundedAndOrdered(t *testing.T) {
	h, err := pty.Spawn("t1", "printf 'a\\nb\\nc\\n'", t.TempDir(), nil)
	require.NoError(t, err)

	for {
		_, ok, err := h.ReadLine()
		require.NoError(t, err)
		if !ok {
			break
		}
	}

	require.Equal(t, []string{"b", "c"}, h.History(2))
	require.Equal(t, []string{"a", "b", "c"}, h.History(100))
}
