// Package bot posts menu change notifications to an admin Telegram chat.
package bot

import (
	"context"
	"fmt"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"menu-service/config"
	"menu-service/services"
)

const queueSize = 64

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Notifier sends one message per committed change from a single background goroutine,
// so the HTTP request never waits on Telegram.
type Notifier struct {
	api    sender
	chatID int64
	logger *zap.Logger

	mu     sync.Mutex
	closed bool
	queue  chan services.Change
	done   chan struct{}
}

// New returns a NopNotifier when the message bot is not configured.
func New(cfg config.TelegramConfig, logger *zap.Logger) (services.Notifier, error) {
	if cfg.MessageToken == "" || cfg.AdminChatID == 0 {
		return services.NopNotifier{}, nil
	}
	api, err := tgbotapi.NewBotAPI(cfg.MessageToken)
	if err != nil {
		return nil, fmt.Errorf("init message bot: %w", err)
	}
	logger.Info("menu change notifications enabled",
		zap.String("bot", api.Self.UserName),
		zap.Int64("chatID", cfg.AdminChatID),
	)
	return newNotifier(api, cfg.AdminChatID, logger), nil
}

func newNotifier(api sender, chatID int64, logger *zap.Logger) *Notifier {
	n := &Notifier{
		api:    api,
		chatID: chatID,
		logger: logger,
		queue:  make(chan services.Change, queueSize),
		done:   make(chan struct{}),
	}
	go n.run()
	return n
}

// MenuChanged enqueues c. The notification is dropped when the queue is full or the
// notifier is closed; handlers still draining after shutdown may land here.
func (n *Notifier) MenuChanged(_ context.Context, c services.Change) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		n.logger.Warn("notifier closed, dropping",
			zap.String("kind", string(c.Kind)),
			zap.String("menuID", c.Node.ID),
		)
		return
	}
	select {
	case n.queue <- c:
	default:
		n.logger.Warn("notification queue full, dropping",
			zap.String("kind", string(c.Kind)),
			zap.String("menuID", c.Node.ID),
		)
	}
}

// Close stops accepting changes and waits for queued ones to be sent.
func (n *Notifier) Close() {
	n.mu.Lock()
	if !n.closed {
		n.closed = true
		close(n.queue)
	}
	n.mu.Unlock()
	<-n.done
}

func (n *Notifier) run() {
	defer close(n.done)
	for c := range n.queue {
		msg := tgbotapi.NewMessage(n.chatID, FormatChange(c))
		if _, err := n.api.Send(msg); err != nil {
			n.logger.Error("send menu notification",
				zap.String("menuID", c.Node.ID),
				zap.Error(err),
			)
		}
	}
}

func FormatChange(c services.Change) string {
	var verb string
	switch c.Kind {
	case services.ChangeCreated:
		verb = "Menu created"
	case services.ChangeUpdated:
		verb = "Menu updated"
	case services.ChangeDeleted:
		verb = "Menu deleted"
	default:
		verb = "Menu changed"
	}
	parent := "root"
	if c.Node.ParentID != nil {
		parent = *c.Node.ParentID
	}
	return fmt.Sprintf("%s: %q\nid: %s\nparent: %s", verb, c.Node.Name, c.Node.ID, parent)
}
