package utils

import (
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func TestSetLogLevel(t *testing.T) {
	defer Log.SetLevel(logrus.InfoLevel)

	require.NoError(t, SetLogLevel("DEBUG"))
	require.Equal(t, logrus.DebugLevel, Log.GetLevel())
	require.NoError(t, SetLogLevel("warning"))
	require.Equal(t, logrus.WarnLevel, Log.GetLevel())
	require.Error(t, SetLogLevel("verbose"))
	require.Equal(t, logrus.WarnLevel, Log.GetLevel())
}

func TestDBLock(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "cache.sqlite")

	l, err := NewDBLock(dbPath)
	require.NoError(t, err)
	require.NoError(t, l.Lock())
	require.FileExists(t, dbPath+lockFileSuffix)
	require.NoError(t, l.Unlock())

	// Unlocking a lock that is not held is a no-op.
	require.NoError(t, l.Unlock())
}

func TestGetAbsDBPath(t *testing.T) {
	p, err := GetAbsDBPath("cache.sqlite")
	require.NoError(t, err)
	require.True(t, filepath.IsAbs(p))

	p, err = GetAbsDBPath("")
	require.NoError(t, err)
	require.Equal(t, "prereqgraph.sqlite", filepath.Base(p))
}
