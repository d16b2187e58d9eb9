package iojson

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalError(t *testing.T) {
	out := MarshalError("resolve ticket: not found", map[string]any{"id": "ARCH-42"})

	var payload Error
	require.NoError(t, json.Unmarshal([]byte(out), &payload))
	assert.Equal(t, "resolve ticket: not found", payload.Message)
	assert.Equal(t, "ARCH-42", payload.Data["id"])

	t.Run("unmarshalable data falls back to a hand-built payload", func(t *testing.T) {
		out := MarshalError("boom", map[string]any{"ch": make(chan int)})

		var fallback map[string]any
		require.NoError(t, json.Unmarshal([]byte(out), &fallback))
		assert.Equal(t, "boom", fallback["message"])
	})
}

func TestWriteWith(t *testing.T) {
	var w, ew bytes.Buffer

	require.NoError(t, WriteWith(&w, &ew, map[string]string{"status": "ok"}))
	assert.Contains(t, w.String(), `"status": "ok"`)
	assert.Empty(t, ew.String())

	t.Run("marshal failure is reported to the error writer", func(t *testing.T) {
		var w, ew bytes.Buffer

		require.NoError(t, WriteWith(&w, &ew, make(chan int)))
		assert.Empty(t, w.String())
		assert.Contains(t, ew.String(), "json_error")
	})
}
