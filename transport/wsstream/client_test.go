package wsstream

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/statesync/entity"
	"github.com/c360/statesync/errors"
	"github.com/c360/statesync/pkg/retry"
)

// fakeDevice is a WebSocket server that speaks the envelope protocol:
// it answers list_entities with a canned inventory and, on
// subscribe_states, replays the scripted states.
type fakeDevice struct {
	t        *testing.T
	entities []entity.Info
	states   []entity.State

	mu   sync.Mutex
	conn *websocket.Conn
}

func (d *fakeDevice) handler(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	d.mu.Lock()
	d.conn = conn
	d.mu.Unlock()

	for {
		var envelope MessageEnvelope
		if err := conn.ReadJSON(&envelope); err != nil {
			return
		}

		switch envelope.Type {
		case "list_entities":
			payload, err := json.Marshal(d.entities)
			require.NoError(d.t, err)
			d.write(conn, MessageEnvelope{
				Type:      "entities",
				ID:        envelope.ID,
				Timestamp: time.Now().UnixMilli(),
				Payload:   payload,
			})

		case "subscribe_states":
			for _, state := range d.states {
				payload, err := json.Marshal(state)
				require.NoError(d.t, err)
				d.write(conn, MessageEnvelope{
					Type:      "state",
					Timestamp: time.Now().UnixMilli(),
					Payload:   payload,
				})
			}
		}
	}
}

func (d *fakeDevice) write(conn *websocket.Conn, envelope MessageEnvelope) {
	data, err := json.Marshal(envelope)
	require.NoError(d.t, err)
	require.NoError(d.t, conn.WriteMessage(websocket.TextMessage, data))
}

func (d *fakeDevice) sendState(state entity.State) {
	d.mu.Lock()
	conn := d.conn
	d.mu.Unlock()
	require.NotNil(d.t, conn, "no client connected")

	payload, err := json.Marshal(state)
	require.NoError(d.t, err)
	d.write(conn, MessageEnvelope{
		Type:      "state",
		Timestamp: time.Now().UnixMilli(),
		Payload:   payload,
	})
}

func startFakeDevice(t *testing.T, dev *fakeDevice) (wsURL string) {
	dev.t = t
	server := httptest.NewServer(http.HandlerFunc(dev.handler))
	t.Cleanup(server.Close)
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func connectedClient(t *testing.T, url string) *Client {
	client, err := NewClient(ClientDeps{Config: Config{URL: url}})
	require.NoError(t, err)
	require.NoError(t, client.Connect(context.Background()))
	t.Cleanup(func() { _ = client.Close(time.Second) })
	return client
}

func TestNewClient_RequiresURL(t *testing.T) {
	_, err := NewClient(ClientDeps{})
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrInvalidConfig)
}

func TestClient_ListEntities(t *testing.T) {
	dev := &fakeDevice{
		entities: []entity.Info{
			{ID: entity.ID{DeviceID: 1, Key: 10}, ObjectID: "light", Classification: entity.Stateful},
			{ID: entity.ID{DeviceID: 1, Key: 11}, ObjectID: "button", Classification: entity.Stateless},
		},
	}
	client := connectedClient(t, startFakeDevice(t, dev))

	infos, err := client.ListEntities(context.Background())
	require.NoError(t, err)
	require.Len(t, infos, 2)
	assert.Equal(t, "light", infos[0].ObjectID)
	assert.Equal(t, entity.Stateless, infos[1].Classification)
}

func TestClient_SubscribeStates(t *testing.T) {
	initial := []entity.State{
		{DeviceID: 1, Key: 10, Payload: []byte(`{"on":true}`)},
		{DeviceID: 1, Key: 11, Payload: []byte(`{"temp":21.5}`)},
	}
	dev := &fakeDevice{states: initial}
	client := connectedClient(t, startFakeDevice(t, dev))

	received := make(chan entity.State, 8)
	unsub, err := client.SubscribeStates(func(s entity.State) {
		received <- s
	})
	require.NoError(t, err)
	defer unsub()

	for i := range initial {
		select {
		case got := <-received:
			assert.Equal(t, initial[i].ID(), got.ID())
			assert.JSONEq(t, string(initial[i].Payload), string(got.Payload))
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for state %d", i)
		}
	}

	// A live change event after the snapshot burst flows through too.
	dev.sendState(entity.State{DeviceID: 1, Key: 10, Payload: []byte(`{"on":false}`)})
	select {
	case got := <-received:
		assert.Equal(t, uint32(10), got.Key)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for change event")
	}
}

func TestClient_SubscribeStates_SecondSubscriptionRejected(t *testing.T) {
	dev := &fakeDevice{}
	client := connectedClient(t, startFakeDevice(t, dev))

	unsub, err := client.SubscribeStates(func(entity.State) {})
	require.NoError(t, err)

	_, err = client.SubscribeStates(func(entity.State) {})
	assert.Error(t, err)

	// After unsubscribing, a new subscription is allowed.
	unsub()
	unsub()
	_, err = client.SubscribeStates(func(entity.State) {})
	assert.NoError(t, err)
}

func TestClient_RequestTimeout(t *testing.T) {
	// Server accepts the connection but never replies.
	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	client, err := NewClient(ClientDeps{Config: Config{
		URL:            "ws" + strings.TrimPrefix(server.URL, "http"),
		RequestTimeout: 50 * time.Millisecond,
	}})
	require.NoError(t, err)
	require.NoError(t, client.Connect(context.Background()))
	defer func() { _ = client.Close(time.Second) }()

	_, err = client.ListEntities(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrRequestTimeout)
	assert.True(t, errors.IsTransient(err))
}

func TestClient_ConnectFailure(t *testing.T) {
	client, err := NewClient(ClientDeps{Config: Config{
		URL: "ws://127.0.0.1:1/stream",
		Dial: retry.Config{
			MaxAttempts:  2,
			InitialDelay: time.Millisecond,
			MaxDelay:     2 * time.Millisecond,
			Multiplier:   2.0,
		},
	}})
	require.NoError(t, err)

	err = client.Connect(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsTransient(err))
}

func TestClient_CloseIdempotent(t *testing.T) {
	dev := &fakeDevice{}
	client := connectedClient(t, startFakeDevice(t, dev))

	require.NoError(t, client.Close(time.Second))
	require.NoError(t, client.Close(time.Second), "second close is a no-op")
}
