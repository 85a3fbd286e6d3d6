package pushnotification

import (
	"context"
	"crypto/ecdh"
	"crypto/rand"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	webpush "github.com/SherClockHolmes/webpush-go"
	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazz187/microwin/internal/config"
	"github.com/kazz187/microwin/internal/eventbus"
	"github.com/kazz187/microwin/internal/pushsubscription"
	"github.com/kazz187/microwin/internal/pushsubscription/repositoryimpl"
	"github.com/kazz187/microwin/pkg/storage"
)

// pushService accepts deliveries on /ok and reports /gone as expired.
type pushService struct {
	*httptest.Server
	mu   sync.Mutex
	hits map[string]int
}

func newPushService(t *testing.T) *pushService {
	t.Helper()
	ps := &pushService{hits: make(map[string]int)}
	ps.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ps.mu.Lock()
		ps.hits[r.URL.Path]++
		ps.mu.Unlock()
		if r.URL.Path == "/gone" {
			w.WriteHeader(http.StatusGone)
			return
		}
		w.WriteHeader(http.StatusCreated)
	}))
	t.Cleanup(ps.Close)
	return ps
}

func (ps *pushService) Hits(path string) int {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	return ps.hits[path]
}

func vapidEnv(t *testing.T) *config.VAPIDEnv {
	t.Helper()
	priv, pub, err := webpush.GenerateVAPIDKeys()
	require.NoError(t, err)
	return &config.VAPIDEnv{VAPIDPublicKey: pub, VAPIDPrivateKey: priv, VAPIDContact: "mailto:test@example.com"}
}

func subscription(t *testing.T, endpoint string) *pushsubscription.Subscription {
	t.Helper()
	key, err := ecdh.P256().GenerateKey(rand.Reader)
	require.NoError(t, err)
	auth := make([]byte, 16)
	_, err = rand.Read(auth)
	require.NoError(t, err)
	return &pushsubscription.Subscription{
		ID:        ulid.Make().String(),
		Endpoint:  endpoint,
		P256dhKey: base64.RawURLEncoding.EncodeToString(key.PublicKey().Bytes()),
		AuthKey:   base64.RawURLEncoding.EncodeToString(auth),
		CreatedAt: time.Now(),
	}
}

func TestSender_SendToAllRemovesExpired(t *testing.T) {
	ctx := context.Background()
	ps := newPushService(t)
	repo := repositoryimpl.NewYAMLRepository(storage.NewMemoryStorage())
	ok := subscription(t, ps.URL+"/ok")
	ok.ID = "ok"
	gone := subscription(t, ps.URL+"/gone")
	gone.ID = "gone"
	require.NoError(t, repo.Upsert(ctx, ok))
	require.NoError(t, repo.Upsert(ctx, gone))

	sender := NewSender(vapidEnv(t), repo, WithHTTPClient(ps.Client()))
	sent := sender.SendToAll(ctx, &NotificationPayload{Title: "hi", Body: "there"})
	assert.Equal(t, 1, sent)
	assert.Equal(t, 1, ps.Hits("/ok"))
	assert.Equal(t, 1, ps.Hits("/gone"))

	subs, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, "ok", subs[0].ID)
}

func TestSender_SkipsWithoutVAPIDKeys(t *testing.T) {
	ctx := context.Background()
	ps := newPushService(t)
	repo := repositoryimpl.NewYAMLRepository(storage.NewMemoryStorage())
	require.NoError(t, repo.Upsert(ctx, subscription(t, ps.URL+"/ok")))

	sender := NewSender(&config.VAPIDEnv{}, repo, WithHTTPClient(ps.Client()))
	assert.Zero(t, sender.SendToAll(ctx, &NotificationPayload{Title: "hi"}))
	assert.Zero(t, ps.Hits("/ok"))
}

func TestDispatcher_NotifiesOnMilestone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ps := newPushService(t)
	repo := repositoryimpl.NewYAMLRepository(storage.NewMemoryStorage())
	require.NoError(t, repo.Upsert(ctx, subscription(t, ps.URL+"/ok")))

	bus := eventbus.New()
	d := NewDispatcher(bus, NewSender(vapidEnv(t), repo, WithHTTPClient(ps.Client())))
	go d.Start(ctx)

	assert.Eventually(t, func() bool {
		bus.PublishNew(eventbus.EventTaskUpdated, "task-1", "", nil)
		bus.PublishNew(eventbus.EventMilestoneReached, "task-1", "clean the kitchen", map[string]string{"completed_count": "5"})
		return ps.Hits("/ok") > 0
	}, 5*time.Second, 20*time.Millisecond)
}

func TestPayloadFor(t *testing.T) {
	p := payloadFor(&eventbus.Event{
		Type:       eventbus.EventMilestoneReached,
		ResourceID: "task-1",
		Payload:    "clean the kitchen",
		Metadata:   map[string]string{"completed_count": "10"},
	})
	require.NotNil(t, p)
	assert.Equal(t, "Milestone reached!", p.Title)
	assert.Equal(t, "10 steps done: clean the kitchen", p.Body)
	assert.Equal(t, "task-1-10", p.Tag)

	assert.NotNil(t, payloadFor(&eventbus.Event{Type: eventbus.EventTaskArchived, ResourceID: "task-1"}))
	assert.Nil(t, payloadFor(&eventbus.Event{Type: eventbus.EventTaskUpdated}))
}
