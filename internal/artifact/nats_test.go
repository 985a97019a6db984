package artifact

import (
	"context"
	"testing"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startJetStream(t *testing.T) *nats.Conn {
	t.Helper()
	srv, err := natsserver.NewServer(&natsserver.Options{
		Host:      "127.0.0.1",
		Port:      -1,
		NoLog:     true,
		NoSigs:    true,
		JetStream: true,
		StoreDir:  t.TempDir(),
	})
	require.NoError(t, err)

	go srv.Start()
	if !srv.ReadyForConnections(5 * time.Second) {
		t.Fatal("NATS server not ready")
	}

	nc, err := nats.Connect(srv.ClientURL())
	require.NoError(t, err)
	t.Cleanup(func() {
		nc.Close()
		srv.Shutdown()
		srv.WaitForShutdown()
	})
	return nc
}

func TestNATSStore_SaveListDelete(t *testing.T) {
	ctx := context.Background()
	nc := startJetStream(t)

	s, err := NewNATSStore(ctx, nc, "test-artifacts")
	require.NoError(t, err)
	s.now = func() time.Time { return time.UnixMilli(42) }

	objs, err := s.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, objs)

	key, err := s.Save(ctx, "job1", "xml", []byte("<x/>"))
	require.NoError(t, err)
	assert.Equal(t, "42-job1.xml", key)

	objs, err = s.List(ctx)
	require.NoError(t, err)
	require.Len(t, objs, 1)
	assert.Equal(t, key, objs[0].Name)
	assert.Equal(t, int64(4), objs[0].Size)
	assert.True(t, objs[0].Created.Equal(time.UnixMilli(42)))

	require.NoError(t, s.Delete(ctx, key))
	objs, err = s.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, objs)
}

func TestNATSStore_RebindsExistingBucket(t *testing.T) {
	ctx := context.Background()
	nc := startJetStream(t)

	first, err := NewNATSStore(ctx, nc, "")
	require.NoError(t, err)
	_, err = first.Save(ctx, "job1", "md", []byte("a"))
	require.NoError(t, err)

	second, err := NewNATSStore(ctx, nc, "")
	require.NoError(t, err)
	objs, err := second.List(ctx)
	require.NoError(t, err)
	assert.Len(t, objs, 1)
}

func TestSweeper_WithNATSStore(t *testing.T) {
	ctx := context.Background()
	s, err := NewNATSStore(ctx, startJetStream(t), "sweep")
	require.NoError(t, err)

	s.now = func() time.Time { return time.Now().Add(-31 * 24 * time.Hour) }
	_, err = s.Save(ctx, "old", "md", []byte("old"))
	require.NoError(t, err)
	s.now = time.Now
	fresh, err := s.Save(ctx, "new", "md", []byte("new"))
	require.NoError(t, err)

	res, err := NewSweeper(s, 0, 0, nil).SweepOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Deleted)

	objs, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, objs, 1)
	assert.Equal(t, fresh, objs[0].Name)
}
