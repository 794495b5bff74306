package db

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/mirrormatch/internal/profile"
)

func TestNewDBDriver(t *testing.T) {
	driver, err := NewDBDriver(&profile.Profile{Driver: "sqlite", DSN: filepath.Join(t.TempDir(), "x.db")})
	require.NoError(t, err)
	assert.NotNil(t, driver.GetDB())
	require.NoError(t, driver.Close())

	_, err = NewDBDriver(&profile.Profile{Driver: "mysql"})
	assert.Error(t, err)

	_, err = NewDBDriver(&profile.Profile{Driver: "sqlite"})
	assert.Error(t, err)
}
