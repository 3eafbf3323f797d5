package ui

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/saravenpi/tablechat/internal/api"
	"github.com/saravenpi/tablechat/internal/contacts"
	"github.com/saravenpi/tablechat/internal/format"
	"github.com/saravenpi/tablechat/internal/models"
	"github.com/saravenpi/tablechat/internal/store"
)

// Feed is a live message subscription as seen by the console.
type Feed interface {
	Frames() <-chan []byte
	Close() error
}

// Backend is the remote side of the console.
type Backend interface {
	ListBots(ctx context.Context) ([]models.Bot, error)
	ListClients(ctx context.Context, botID string) ([]models.Client, error)
	GetMessages(ctx context.Context, clientID string) ([]models.Message, error)
	Subscribe(ctx context.Context, clientID string) (Feed, error)
}

type apiBackend struct {
	*api.Client
}

func (b apiBackend) Subscribe(ctx context.Context, clientID string) (Feed, error) {
	feed, err := b.Client.Subscribe(ctx, clientID)
	if err != nil {
		return nil, err
	}
	return feed, nil
}

// NewBackend adapts the REST/websocket client to the console.
func NewBackend(c *api.Client) Backend {
	return apiBackend{Client: c}
}

// Env carries what every screen needs. State may be nil, in which case
// unread markers are disabled.
type Env struct {
	Backend    Backend
	Contacts   *contacts.Book
	State      *store.Store
	Locale     format.Locale
	Breakpoint int
	Timeout    time.Duration
	Logger     *zap.Logger
	Now        func() time.Time
}

func (e *Env) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e *Env) log() *zap.Logger {
	if e.Logger == nil {
		return zap.NewNop()
	}
	return e.Logger
}

func (e *Env) requestContext() (context.Context, context.CancelFunc) {
	if e.Timeout <= 0 {
		return context.WithCancel(context.Background())
	}
	return context.WithTimeout(context.Background(), e.Timeout)
}

func (e *Env) labelFor(c models.Client) string {
	return e.Contacts.Label(c)
}
