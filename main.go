package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/saravenpi/tablechat/internal/api"
	"github.com/saravenpi/tablechat/internal/config"
	"github.com/saravenpi/tablechat/internal/contacts"
	"github.com/saravenpi/tablechat/internal/logging"
	"github.com/saravenpi/tablechat/internal/models"
	"github.com/saravenpi/tablechat/internal/store"
	"github.com/saravenpi/tablechat/internal/ui"
)

const version = "1.0.0"

var (
	configPath string
	botID      string
	verbose    bool
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "tablechat",
		Short: "Terminal console for restaurant WhatsApp bot conversations",
		Long: `tablechat shows the WhatsApp conversations of your restaurant bots.

Pick a bot, pick a customer and follow the chat as it happens. Contacts
saved in ~/.tablechat/contacts/ replace phone numbers with names.

Keys:
  ↑/↓ or j/k        navigate lists and scroll messages
  enter             open a conversation
  tab / l           switch between list and chat
  r                 refresh the list, reload the open chat
  a                 add the open customer to your contacts
  esc               go back
  q, ctrl+c         quit`,
		SilenceUsage: true,
		RunE:         runConsole,
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default ~/.tablechat/config.yml)")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	root.Flags().StringVarP(&botID, "bot", "b", "", "open the conversations of this bot directly")

	root.AddCommand(newVersionCmd(), newClientsCmd(), newFollowCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "tablechat v%s\n", version)
		},
	}
}

// app holds what every command builds from the configuration.
type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	client  *api.Client
	backend ui.Backend
	book    *contacts.Book
}

func setup() (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(cfg.Logging.Path, cfg.Logging.Level, verbose)
	if err != nil {
		return nil, err
	}

	client, err := api.NewClient(cfg.API.BaseURL, cfg.API.WSURL, cfg.API.Token, cfg.API.Timeout, api.WithLogger(logger.Named("api")))
	if err != nil {
		_ = logger.Sync()
		return nil, err
	}

	return &app{
		cfg:     cfg,
		logger:  logger,
		client:  client,
		backend: ui.NewBackend(client),
		book:    contacts.NewBook(cfg.ContactsDir()),
	}, nil
}

func (a *app) close() {
	_ = a.logger.Sync()
}

func runConsole(cmd *cobra.Command, args []string) error {
	a, err := setup()
	if err != nil {
		return err
	}
	defer a.close()

	state, err := store.Open(a.cfg.StatePath())
	if err != nil {
		// unread markers are optional
		a.logger.Warn("read state unavailable", zap.Error(err))
		state = nil
	} else {
		defer state.Close()
	}

	env := &ui.Env{
		Backend:    a.backend,
		Contacts:   a.book,
		State:      state,
		Locale:     a.cfg.UI.LocaleValue(),
		Breakpoint: a.cfg.UI.MobileBreakpoint,
		Timeout:    a.cfg.API.Timeout,
		Logger:     a.logger,
	}

	var initial tea.Model = ui.NewMenuModel(env)
	if botID != "" {
		bot, err := findBot(cmd.Context(), a.backend, botID)
		if err != nil {
			return err
		}
		initial = ui.NewConsoleModel(env, bot)
	}

	a.logger.Info("starting console", zap.String("api", a.cfg.API.BaseURL), zap.String("locale", env.Locale.String()))
	p := tea.NewProgram(initial, tea.WithAltScreen(), tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running console: %w", err)
	}
	return nil
}

// findBot resolves a bot by uid, name or phone number.
func findBot(ctx context.Context, backend ui.Backend, ref string) (models.Bot, error) {
	bots, err := backend.ListBots(ctx)
	if err != nil {
		return models.Bot{}, fmt.Errorf("failed to list bots: %w", err)
	}
	for _, bot := range bots {
		if bot.UID == ref || bot.Name == ref || bot.PhoneNumber == ref {
			return bot, nil
		}
	}
	return models.Bot{}, fmt.Errorf("bot not found: %s", ref)
}
