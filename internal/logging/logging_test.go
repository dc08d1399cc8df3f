package logging

import (
	"os"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoggerDefaultsToInfoOnUnsetLevel(t *testing.T) {
	require.NoError(t, os.Unsetenv("LOG_LEVEL"))

	log := NewLogger()
	assert.Equal(t, logrus.InfoLevel, log.GetLevel())
	_, ok := log.Formatter.(*logrus.JSONFormatter)
	assert.True(t, ok)
}

func TestNewLoggerDefaultsToInfoOnUnparseableLevel(t *testing.T) {
	t.Setenv("LOG_LEVEL", "not-a-level")

	log := NewLogger()
	assert.Equal(t, logrus.InfoLevel, log.GetLevel())
}

func TestNewLoggerHonorsLogLevel(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")

	log := NewLogger()
	assert.Equal(t, logrus.DebugLevel, log.GetLevel())
}

func TestNewSessionEntryCarriesUserAndSessionID(t *testing.T) {
	log := logrus.New()

	entry := NewSessionEntry(log, "alice")
	assert.Equal(t, "alice", entry.Data["user"])
	assert.NotEmpty(t, entry.Data["session_id"])
}

func TestNewSessionEntryGeneratesDistinctSessionIDs(t *testing.T) {
	log := logrus.New()

	first := NewSessionEntry(log, "alice")
	second := NewSessionEntry(log, "alice")
	assert.NotEqual(t, first.Data["session_id"], second.Data["session_id"])
}
