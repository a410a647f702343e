package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestWebhookBroadcaster_PostsMessage(t *testing.T) {
	var got webhookRequest
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":true}`))
	}))
	defer srv.Close()

	b := NewWebhookBroadcaster(srv.URL, "secret", "group-rw05", zap.NewNop())
	err := b.Broadcast(context.Background(), Message{Kind: KindIncident, Title: "Kebakaran", Body: "Jl. Melati 12", Subdivision: "02"})
	require.NoError(t, err)

	assert.Equal(t, "secret", auth)
	assert.Equal(t, "group-rw05", got.Target)
	assert.Equal(t, "[DARURAT] Kebakaran (RT 02)\nJl. Melati 12", got.Message)
	assert.Equal(t, KindIncident, got.Meta.Kind)
}

func TestWebhookBroadcaster_Non2xxIsError(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	b := NewWebhookBroadcaster(srv.URL, "", "g", zap.NewNop())
	assert.Error(t, b.Broadcast(context.Background(), Message{Kind: KindBulletin, Title: "Kerja bakti"}))
	assert.GreaterOrEqual(t, atomic.LoadInt32(&calls), int32(1))
}

type fakePublisher struct {
	topic   string
	payload []byte
}

func (f *fakePublisher) Publish(topic string, _ byte, _ bool, payload []byte) error {
	f.topic = topic
	f.payload = payload
	return nil
}

func TestMQTTBroadcaster(t *testing.T) {
	pub := &fakePublisher{}
	b := NewMQTTBroadcaster(pub, "warga/broadcast", 1)
	require.NoError(t, b.Broadcast(context.Background(), Message{Kind: KindBulletin, Title: "Posyandu"}))

	assert.Equal(t, "warga/broadcast/bulletin", pub.topic)
	var m Message
	require.NoError(t, json.Unmarshal(pub.payload, &m))
	assert.Equal(t, "Posyandu", m.Title)
}

type countingNotifier struct {
	n   int32
	err error
}

func (c *countingNotifier) Broadcast(context.Context, Message) error {
	atomic.AddInt32(&c.n, 1)
	return c.err
}

func TestMulti_JoinsErrorsAndReachesEveryChannel(t *testing.T) {
	a := &countingNotifier{err: errors.New("gateway down")}
	b := &countingNotifier{}
	err := Multi{a, b}.Broadcast(context.Background(), Message{})
	assert.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&a.n))
	assert.Equal(t, int32(1), atomic.LoadInt32(&b.n))
}

func TestDispatcher_FailureIsSwallowed(t *testing.T) {
	n := &countingNotifier{err: errors.New("boom")}
	d := NewDispatcher(n, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	d.Fire(ctx, Message{Kind: KindIncident})
	cancel()
	d.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&n.n))
}
