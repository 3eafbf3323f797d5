package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	maxFrameSize = 1 << 20
	closeGrace   = time.Second
)

// LiveFeed is a websocket subscription to the messages of one conversation.
// Frames are delivered raw and in arrival order on Frames, which is closed
// when the connection ends for any reason.
type LiveFeed struct {
	ID       string
	ClientID string

	conn   *websocket.Conn
	frames chan []byte
	done   chan struct{}
	exited chan struct{}
	once   sync.Once
	logger *zap.Logger

	mu  sync.Mutex
	err error
}

// Subscribe dials the live feed of a conversation.
func (c *Client) Subscribe(ctx context.Context, clientID string) (*LiveFeed, error) {
	u, err := url.Parse(c.wsURL + "/ws/messages/" + url.PathEscape(clientID) + "/")
	if err != nil {
		return nil, fmt.Errorf("invalid live url: %w", err)
	}
	header := http.Header{}
	if c.token != "" {
		q := u.Query()
		q.Set("token", c.token)
		u.RawQuery = q.Encode()
		header.Set("Authorization", "Bearer "+c.token)
	}

	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: c.httpClient.Timeout,
	}
	conn, resp, err := dialer.DialContext(ctx, u.String(), header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("failed to open live feed: %w (status %d)", err, resp.StatusCode)
		}
		return nil, fmt.Errorf("failed to open live feed: %w", err)
	}
	conn.SetReadLimit(maxFrameSize)

	f := &LiveFeed{
		ID:       uuid.NewString(),
		ClientID: clientID,
		conn:     conn,
		frames:   make(chan []byte),
		done:     make(chan struct{}),
		exited:   make(chan struct{}),
	}
	f.logger = c.logger.With(zap.String("feed", f.ID), zap.String("client", clientID))
	f.logger.Debug("live feed opened")

	go f.readLoop()
	return f, nil
}

func (f *LiveFeed) readLoop() {
	defer close(f.exited)
	defer close(f.frames)

	for {
		_, data, err := f.conn.ReadMessage()
		if err != nil {
			select {
			case <-f.done:
			default:
				f.setErr(err)
				f.logger.Info("live feed dropped", zap.Error(err))
			}
			_ = f.conn.Close()
			return
		}

		select {
		case f.frames <- data:
		case <-f.done:
			return
		}
	}
}

func (f *LiveFeed) setErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

// Frames returns the channel of raw frames.
func (f *LiveFeed) Frames() <-chan []byte {
	return f.frames
}

// Err returns why the feed ended on its own, or nil.
func (f *LiveFeed) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

// Close ends the subscription and waits for the reader to exit. Calling it
// more than once is harmless.
func (f *LiveFeed) Close() error {
	var err error
	f.once.Do(func() {
		close(f.done)
		deadline := time.Now().Add(closeGrace)
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		if werr := f.conn.WriteControl(websocket.CloseMessage, msg, deadline); werr != nil && !errors.Is(werr, websocket.ErrCloseSent) {
			f.logger.Debug("close handshake skipped", zap.Error(werr))
		}
		if cerr := f.conn.Close(); cerr != nil && !errors.Is(cerr, net.ErrClosed) {
			err = cerr
		}
		<-f.exited
		f.logger.Debug("live feed closed")
	})
	return err
}
