package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/saravenpi/tablechat/internal/chat"
	"github.com/saravenpi/tablechat/internal/contacts"
	"github.com/saravenpi/tablechat/internal/format"
	"github.com/saravenpi/tablechat/internal/models"
	"github.com/saravenpi/tablechat/internal/ui"
)

func newClientsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clients <bot>",
		Short: "List the conversations of a bot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup()
			if err != nil {
				return err
			}
			defer a.close()

			ctx, cancel := context.WithTimeout(cmd.Context(), a.cfg.API.Timeout)
			defer cancel()
			bot, err := findBot(ctx, a.backend, args[0])
			if err != nil {
				return err
			}
			return printClients(ctx, cmd.OutOrStdout(), a.backend, a.book, a.cfg.UI.LocaleValue(), bot, time.Now())
		},
	}
}

func printClients(ctx context.Context, out io.Writer, backend ui.Backend, book *contacts.Book, locale format.Locale, bot models.Bot, now time.Time) error {
	clients, err := backend.ListClients(ctx, bot.UID)
	if err != nil {
		return fmt.Errorf("failed to list conversations: %w", err)
	}
	if len(clients) == 0 {
		fmt.Fprintln(out, "No conversations yet.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for _, c := range clients {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", c.UID, book.Label(c), locale.TimeAgo(c.LastMessageAt, now), locale.Preview(c.LastMessage))
	}
	return w.Flush()
}

func newFollowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "follow <client>",
		Short: "Print a conversation and stream its live messages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup()
			if err != nil {
				return err
			}
			defer a.close()

			f := &follower{
				backend: a.backend,
				locale:  a.cfg.UI.LocaleValue(),
				out:     cmd.OutOrStdout(),
				timeout: a.cfg.API.Timeout,
				logger:  a.logger.Named("follow"),
			}
			return f.run(cmd.Context(), args[0])
		},
	}
}

// follower drives a chat.Engine without the TUI: history and live feed
// are opened in parallel, then every change is printed as it arrives.
type follower struct {
	backend ui.Backend
	locale  format.Locale
	out     io.Writer
	timeout time.Duration
	logger  *zap.Logger
}

func (f *follower) run(ctx context.Context, clientID string) error {
	engine := chat.NewEngine()
	ticket, fetchCtx := engine.Switch(ctx, clientID)
	defer engine.Stop()

	if f.timeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(fetchCtx, f.timeout)
		defer cancel()
	}

	var (
		history []models.Message
		feed    ui.Feed
	)
	g, gctx := errgroup.WithContext(fetchCtx)
	g.Go(func() error {
		var err error
		history, err = f.backend.GetMessages(gctx, clientID)
		if err != nil {
			return fmt.Errorf("failed to load messages: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		feed, err = f.backend.Subscribe(gctx, clientID)
		if err != nil {
			return fmt.Errorf("failed to open live feed: %w", err)
		}
		return nil
	})
	err := g.Wait()

	if feed != nil {
		engine.Attach(ticket, feed)
	}
	engine.ResolveHistory(ticket, history, err)
	if err != nil {
		return err
	}

	for _, m := range engine.Messages() {
		f.print(m, chat.Created)
	}
	if engine.Count() == 0 {
		fmt.Fprintln(f.out, "No messages in this conversation.")
	}

	f.logger.Info("following conversation", zap.String("client", clientID))
	for {
		select {
		case <-ctx.Done():
			return nil
		case data, ok := <-feed.Frames():
			if !ok {
				engine.FeedClosed(ticket)
				fmt.Fprintln(f.out, "-- live updates stopped --")
				return nil
			}
			ev, ok := chat.ParseEvent(data)
			if !ok {
				f.logger.Debug("frame ignored", zap.ByteString("frame", data))
				continue
			}
			if engine.Apply(ticket, ev) {
				f.print(ev.Message, ev.Kind)
			}
		}
	}
}

func (f *follower) print(m models.Message, kind chat.Kind) {
	sender := "customer"
	if !m.FromCustomer() {
		sender = "bot"
	}
	prefix := ""
	if kind == chat.Updated {
		prefix = "(edited) "
	}

	line := fmt.Sprintf("[%s %s] %s: %s%s", f.locale.Date(m.SentAt.Local()), f.locale.Clock(m.SentAt.Local()), sender, prefix, m.Text)
	if m.MediaURL != "" {
		link := f.locale.Media(m.MediaURL)
		line += fmt.Sprintf(" [%s: %s]", link.Label, link.URL)
	}
	fmt.Fprintln(f.out, line)
}
