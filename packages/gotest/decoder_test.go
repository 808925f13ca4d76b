package gotest

import (
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEvent(t *testing.T) {
	t.Run("full event", func(t *testing.T) {
		ev, err := ParseEvent([]byte(`{"Time":"2024-03-01T12:00:00.5Z","Action":"pass","Package":"github.com/acme/auth","Test":"TestLogin","Elapsed":0.25}`))
		require.NoError(t, err)

		assert.Equal(t, time.Date(2024, 3, 1, 12, 0, 0, 500_000_000, time.UTC), ev.Time)
		assert.Equal(t, ActionPass, ev.Action)
		assert.Equal(t, "github.com/acme/auth", ev.Package)
		assert.Equal(t, "TestLogin", ev.Test)
		assert.Equal(t, 0.25, ev.Elapsed)
		assert.True(t, ev.IsTerminal())
		assert.False(t, ev.IsPackageEvent())
	})

	t.Run("package output", func(t *testing.T) {
		ev, err := ParseEvent([]byte(`{"Action":"output","Package":"p","Output":"ok  \tp\t0.1s\n"}`))
		require.NoError(t, err)
		assert.True(t, ev.IsPackageEvent())
		assert.False(t, ev.IsTerminal())
		assert.Equal(t, "ok  \tp\t0.1s\n", ev.Output)
		assert.True(t, ev.Time.IsZero())
	})

	t.Run("build failure fields", func(t *testing.T) {
		ev, err := ParseEvent([]byte(`{"Action":"fail","Package":"p","FailedBuild":"p [p.test]"}`))
		require.NoError(t, err)
		assert.Equal(t, "p [p.test]", ev.FailedBuild)
	})

	for name, line := range map[string]string{
		"empty":          "",
		"plain text":     "# github.com/acme/broken",
		"invalid json":   `{"Action":`,
		"missing action": `{"Package":"p"}`,
		"bad time":       `{"Time":"yesterday","Action":"run"}`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ParseEvent([]byte(line))
			assert.ErrorIs(t, err, ErrNotEvent)
		})
	}
}

func TestDecoder(t *testing.T) {
	input := strings.Join([]string{
		`{"Action":"run","Package":"p","Test":"TestA"}`,
		`not json at all`,
		`{"Action":"pass","Package":"p","Test":"TestA"}`,
	}, "\n")
	dec := NewDecoder(strings.NewReader(input))

	ev, _, err := dec.Next()
	require.NoError(t, err)
	assert.Equal(t, ActionRun, ev.Action)

	_, raw, err := dec.Next()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotEvent))
	assert.Contains(t, err.Error(), "line 2")
	assert.Equal(t, "not json at all", string(raw))

	ev, _, err = dec.Next()
	require.NoError(t, err)
	assert.Equal(t, ActionPass, ev.Action)

	_, _, err = dec.Next()
	assert.ErrorIs(t, err, io.EOF)
}
