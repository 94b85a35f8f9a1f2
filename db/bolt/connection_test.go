package bolt

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.db")

	db, err := Open(Config{Path: path, OpenTimeout: time.Second})
	require.NoError(t, err)
	defer db.Close()

	assert.Equal(t, path, db.Path())
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open(Config{})
	assert.Error(t, err)
}

func TestOpenTimesOutOnLockedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.db")

	first, err := Open(Config{Path: path, OpenTimeout: time.Second})
	require.NoError(t, err)
	defer first.Close()

	_, err = Open(Config{Path: path, OpenTimeout: 50 * time.Millisecond})
	assert.Error(t, err)
}
