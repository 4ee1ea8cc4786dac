package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNew_Levels(t *testing.T) {
	cases := map[string]zap.AtomicLevel{
		"debug": zap.NewAtomicLevelAt(zap.DebugLevel),
		"INFO":  zap.NewAtomicLevelAt(zap.InfoLevel),
		"warn":  zap.NewAtomicLevelAt(zap.WarnLevel),
		"error": zap.NewAtomicLevelAt(zap.ErrorLevel),
		"":      zap.NewAtomicLevelAt(zap.InfoLevel),
	}
	for level, want := range cases {
		l, err := New(level, "console")
		require.NoError(t, err, level)
		assert.True(t, l.Core().Enabled(want.Level()), level)
		if want.Level() > zap.DebugLevel {
			assert.False(t, l.Core().Enabled(want.Level()-1), level)
		}
	}
}

func TestNew_BadEncoding(t *testing.T) {
	_, err := New("info", "xml")
	assert.Error(t, err)
}
