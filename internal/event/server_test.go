package event

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazz187/microwin/internal/api"
	"github.com/kazz187/microwin/internal/eventbus"
)

func TestServer_SubscribeEventsFiltersByType(t *testing.T) {
	bus := eventbus.New()
	mux := http.NewServeMux()
	mux.Handle(api.NewEventServiceHandler(NewServer(bus)))
	hs := httptest.NewUnstartedServer(mux)
	hs.EnableHTTP2 = true
	hs.StartTLS()
	t.Cleanup(hs.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client := api.NewEventServiceClient(hs.Client(), hs.URL)
	stream, err := client.SubscribeEvents(ctx, connect.NewRequest(&api.SubscribeEventsRequest{
		EventTypes: []string{string(eventbus.EventMilestoneReached)},
	}))
	require.NoError(t, err)
	defer stream.Close()

	// the subscription is registered once the handler runs; keep publishing
	// until the first matching event arrives
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(10 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				bus.PublishNew(eventbus.EventTaskUpdated, "task-1", "", nil)
				bus.PublishNew(eventbus.EventMilestoneReached, "task-1", "clean the kitchen", map[string]string{"completed_count": "5"})
			}
		}
	}()
	defer close(done)

	require.True(t, stream.Receive(), "stream ended: %v", stream.Err())
	got := stream.Msg()
	assert.Equal(t, string(eventbus.EventMilestoneReached), got.Type)
	assert.Equal(t, "task-1", got.ResourceID)
	assert.Equal(t, "5", got.Metadata["completed_count"])

	require.True(t, stream.Receive())
	assert.Equal(t, string(eventbus.EventMilestoneReached), stream.Msg().Type)
}
