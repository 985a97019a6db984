package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/repopackd/internal/job"
)

func startTestNATSServer(t *testing.T) *natsserver.Server {
	t.Helper()
	srv, err := natsserver.NewServer(&natsserver.Options{
		Host:   "127.0.0.1",
		Port:   -1,
		NoLog:  true,
		NoSigs: true,
	})
	require.NoError(t, err)

	go srv.Start()
	if !srv.ReadyForConnections(5 * time.Second) {
		t.Fatal("NATS server not ready")
	}
	t.Cleanup(func() {
		srv.Shutdown()
		srv.WaitForShutdown()
	})
	return srv
}

func TestSubject(t *testing.T) {
	assert.Equal(t, "repopack.jobs.j1.progress", Subject("j1", job.Message{}))
	assert.Equal(t, "repopack.jobs.j1.selection", Subject("j1", job.Message{WaitingForFileSelection: true}))
	assert.Equal(t, "repopack.jobs.j1.completed", Subject("j1", job.Message{Complete: true}))
	assert.Equal(t, "repopack.jobs.j1.failed", Subject("j1", job.Message{Complete: true, Error: "x"}))
}

func TestNATSPublisher_Publish(t *testing.T) {
	srv := startTestNATSServer(t)
	nc, err := nats.Connect(srv.ClientURL())
	require.NoError(t, err)
	defer nc.Close()

	sub, err := nc.SubscribeSync(SubjectPrefix + ".j1.>")
	require.NoError(t, err)
	require.NoError(t, nc.Flush())

	p := NewNATSPublisher(nc, nil)
	p.Publish(context.Background(), "j1", job.Message{HumanFriendlyProgress: "Cloning", Progress: 12})
	p.Publish(context.Background(), "j1", job.Message{HumanFriendlyProgress: "Error occurred", Complete: true, Error: "boom"})

	msg, err := sub.NextMsg(2 * time.Second)
	require.NoError(t, err)
	assert.Equal(t, "repopack.jobs.j1.progress", msg.Subject)
	var got map[string]any
	require.NoError(t, json.Unmarshal(msg.Data, &got))
	assert.Equal(t, "j1", got["jobId"])
	assert.Equal(t, "Cloning", got["humanFriendlyProgress"])

	msg, err = sub.NextMsg(2 * time.Second)
	require.NoError(t, err)
	assert.Equal(t, "repopack.jobs.j1.failed", msg.Subject)
}
