package liblog

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, ParseLevel("debug"))
	assert.Equal(t, zerolog.WarnLevel, ParseLevel("WARN"))
	assert.Equal(t, zerolog.ErrorLevel, ParseLevel(LevelError))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("verbose"))
}

func TestComponentLoggerWritesJSON(t *testing.T) {
	previous := Root()
	defer func() {
		mu.Lock()
		root = previous
		mu.Unlock()
	}()

	var buf bytes.Buffer
	Setup(&buf, LevelInfo, false)
	log := With("dofgl")
	log.Debug().Msg("hidden")
	log.Info().Int("count", 3).Msg("shown")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "dofgl", entry["component"])
	assert.Equal(t, "shown", entry["message"])
	assert.Equal(t, float64(3), entry["count"])
}
