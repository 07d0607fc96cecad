package logging

import (
	"os"
	"path/filepath"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "kanban.log")
	logger := log.New()

	closer, err := Setup(logger, Options{Level: "debug", File: path, JSON: true})
	require.NoError(t, err)
	logger.WithField("task", "7").Debug("transition")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"task":"7"`)
	assert.Equal(t, log.DebugLevel, logger.GetLevel())
}

func TestSetupRejectsUnknownLevel(t *testing.T) {
	_, err := Setup(log.New(), Options{Level: "loud"})
	assert.Error(t, err)
}
