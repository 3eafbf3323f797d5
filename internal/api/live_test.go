package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// liveServer upgrades every request, sends frames, then either holds the
// connection open until the client leaves or drops it.
func liveServer(t *testing.T, frames []string, drop bool) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/ws/messages/c-1/", r.URL.Path)
		assert.Equal(t, "secret", r.URL.Query().Get("token"))

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		for _, f := range frames {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(f)); err != nil {
				return
			}
		}
		if drop {
			return
		}
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
}

func dialTestFeed(t *testing.T, srv *httptest.Server) *LiveFeed {
	t.Helper()
	c, err := NewClient(srv.URL+"/api", "", "secret", 5*time.Second)
	require.NoError(t, err)

	feed, err := c.Subscribe(context.Background(), "c-1")
	require.NoError(t, err)
	return feed
}

func receive(t *testing.T, feed *LiveFeed) ([]byte, bool) {
	t.Helper()
	select {
	case data, ok := <-feed.Frames():
		return data, ok
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for frame")
		return nil, false
	}
}

func TestSubscribe_DeliversFramesInOrder(t *testing.T) {
	srv := liveServer(t, []string{"one", "two", "three"}, false)
	defer srv.Close()

	feed := dialTestFeed(t, srv)
	defer feed.Close()

	assert.NotEmpty(t, feed.ID)
	for _, want := range []string{"one", "two", "three"} {
		data, ok := receive(t, feed)
		require.True(t, ok)
		assert.Equal(t, want, string(data))
	}
}

func TestLiveFeed_CloseEndsReader(t *testing.T) {
	srv := liveServer(t, []string{"unread"}, false)
	defer srv.Close()

	feed := dialTestFeed(t, srv)

	// the pending frame is never consumed; Close must still return
	require.NoError(t, feed.Close())
	require.NoError(t, feed.Close())

	_, ok := <-feed.Frames()
	assert.False(t, ok)
	assert.NoError(t, feed.Err())
}

func TestLiveFeed_ServerDrop(t *testing.T) {
	srv := liveServer(t, []string{"last words"}, true)
	defer srv.Close()

	feed := dialTestFeed(t, srv)
	defer feed.Close()

	data, ok := receive(t, feed)
	require.True(t, ok)
	assert.Equal(t, "last words", string(data))

	_, ok = receive(t, feed)
	assert.False(t, ok)
	assert.Error(t, feed.Err())
}

func TestSubscribe_Rejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL+"/api", "", "secret", 5*time.Second)
	require.NoError(t, err)

	_, err = c.Subscribe(context.Background(), "c-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}
