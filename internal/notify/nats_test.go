package notify

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CHRISHLOH/tmdb-etl/internal/metrics"
)

type fakeConn struct {
	subject  string
	data     []byte
	flushes  int
	closed   bool
	pubErr   error
	flushErr error
}

func (c *fakeConn) Publish(subj string, data []byte) error {
	if c.pubErr != nil {
		return c.pubErr
	}
	c.subject = subj
	c.data = data
	return nil
}

func (c *fakeConn) FlushTimeout(time.Duration) error {
	c.flushes++
	return c.flushErr
}

func (c *fakeConn) Close() { c.closed = true }

func TestPublishSendsEnvelope(t *testing.T) {
	conn := &fakeConn{}
	p := NewNATSPublisher(conn, "tmdb.etl.run.completed")
	p.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }

	before := testutil.ToFloat64(metrics.NatsMessagesPublished.WithLabelValues("tmdb.etl.run.completed", "success"))
	require.NoError(t, p.Publish("run.completed", map[string]any{"run_id": "abc"}))

	assert.Equal(t, "tmdb.etl.run.completed", conn.subject)
	assert.Equal(t, 1, conn.flushes)

	var msg struct {
		Event     string         `json:"event"`
		Payload   map[string]any `json:"payload"`
		Timestamp time.Time      `json:"timestamp"`
		Source    string         `json:"source"`
	}
	require.NoError(t, json.Unmarshal(conn.data, &msg))
	assert.Equal(t, "run.completed", msg.Event)
	assert.Equal(t, "abc", msg.Payload["run_id"])
	assert.Equal(t, "tmdb-etl", msg.Source)
	assert.True(t, msg.Timestamp.Equal(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)))

	after := testutil.ToFloat64(metrics.NatsMessagesPublished.WithLabelValues("tmdb.etl.run.completed", "success"))
	assert.Equal(t, before+1, after)

	p.Close()
	assert.True(t, conn.closed)
}

func TestPublishErrors(t *testing.T) {
	boom := errors.New("boom")

	err := NewNATSPublisher(&fakeConn{pubErr: boom}, "s").Publish("e", 1)
	require.ErrorIs(t, err, boom)

	err = NewNATSPublisher(&fakeConn{flushErr: boom}, "s").Publish("e", 1)
	require.ErrorIs(t, err, boom)

	err = NewNATSPublisher(&fakeConn{}, "s").Publish("e", func() {})
	require.Error(t, err)
}
