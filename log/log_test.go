package log

import (
	"bytes"
	"encoding/json"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	for name, want := range levelNames {
		got, err := ParseLevel(name)
		require.NoError(t, err)
		assert.Equal(t, want, got)
		assert.Equal(t, name, got.String())
	}

	l, err := ParseLevel(" DEBUG ")
	require.NoError(t, err)
	assert.Equal(t, LevelDebug, l)

	_, err = ParseLevel("loud")
	assert.Error(t, err)
}

func TestLogwRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	SetJSON(true)
	SetLevel(LevelInfo)
	t.Cleanup(func() {
		SetOutput(os.Stderr)
		SetJSON(false)
		SetLevel(LevelInfo)
	})

	Logw(LevelDebug, "[TEST] hidden", M{"a": 1})
	assert.Zero(t, buf.Len())

	Logw(LevelWarn, "[TEST] shown", M{"identity": "alice"})
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "[TEST] shown", entry["msg"])
	assert.Equal(t, "warning", entry["level"])
	assert.Equal(t, "alice", entry["identity"])
}
