package logging

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
)

func TestInitWriterLevels(t *testing.T) {
	var buf bytes.Buffer
	InitWriter(false, &buf)
	t.Cleanup(func() { Init(false) })

	log.Debug().Msg("hidden")
	log.Info().Str("model", "granite4:350m").Msg("shown")
	assert.False(t, DebugEnabled())
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "model=granite4:350m")

	buf.Reset()
	InitWriter(true, &buf)
	log.Debug().Msg("now visible")
	assert.True(t, DebugEnabled())
	assert.Contains(t, buf.String(), "now visible")
}
