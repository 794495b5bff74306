package server

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/mirrormatch/ai/services/stats"
	"github.com/hrygo/mirrormatch/internal/profile"
	"github.com/hrygo/mirrormatch/server/service/matchmaker"
	"github.com/hrygo/mirrormatch/store"
	"github.com/hrygo/mirrormatch/store/db/sqlite"
)

func TestServerLifecycle(t *testing.T) {
	p := &profile.Profile{Mode: "dev", Addr: "127.0.0.1", Port: 0, Driver: "sqlite", DSN: filepath.Join(t.TempDir(), "server.db")}
	driver, err := sqlite.NewDB(p)
	require.NoError(t, err)
	st := store.New(driver, p)
	require.NoError(t, st.Migrate(context.Background()))

	history := stats.NewPersister(st, 4, nil, nil)
	svc := matchmaker.NewService(st, matchmaker.Config{}, matchmaker.WithHistory(history))

	ctx := context.Background()
	s, err := NewServer(ctx, p, st, svc, WithHistory(history))
	require.NoError(t, err)
	require.NoError(t, s.Start(ctx))
	defer s.Shutdown(ctx)

	resp, err := http.Get(fmt.Sprintf("http://%s/health", s.Addr()))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
