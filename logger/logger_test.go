package logger

import (
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit(t *testing.T) {
	defer log.SetDefault(log.Default())

	l, err := Init("debug")
	require.NoError(t, err)
	assert.Equal(t, log.DebugLevel, l.GetLevel())

	_, err = Init("loud")
	assert.Error(t, err)
}
