// Package notify tells the shop admins about finished background jobs.
package notify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/ncobase/shopconsole/logging/logger"
	tele "gopkg.in/telebot.v4"
)

// MaxDocumentSize is the Bot API upload limit.
const MaxDocumentSize = 50 << 20

// ErrNotConfigured is returned when the token or chat id is missing.
var ErrNotConfigured = errors.New("telegram notifier is not configured")

// TelegramOptions configures a TelegramNotifier.
type TelegramOptions struct {
	Token    string
	ChatID   int64
	SendFile bool
	// APIURL overrides the Bot API endpoint.
	APIURL  string
	Timeout time.Duration
}

// TelegramNotifier sends export reports to an admin chat.
type TelegramNotifier struct {
	bot      *tele.Bot
	chat     tele.ChatID
	sendFile bool
}

// NewTelegram creates a notifier. The bot runs offline: it only sends.
func NewTelegram(opts TelegramOptions) (*TelegramNotifier, error) {
	if opts.Token == "" || opts.ChatID == 0 {
		return nil, ErrNotConfigured
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}

	bot, err := tele.NewBot(tele.Settings{
		Token:   opts.Token,
		URL:     opts.APIURL,
		Offline: true,
		Client:  &http.Client{Timeout: opts.Timeout},
	})
	if err != nil {
		return nil, fmt.Errorf("telegram: bot initialization failed: %w", err)
	}

	return &TelegramNotifier{
		bot:      bot,
		chat:     tele.ChatID(opts.ChatID),
		sendFile: opts.SendFile,
	}, nil
}

// ExportCompleted reports a finished export, attaching the file when
// enabled and small enough.
func (n *TelegramNotifier) ExportCompleted(ctx context.Context, filePath string, total int64) error {
	name := filepath.Base(filePath)
	text := fmt.Sprintf("Telegram users export completed: %d users saved to %s.", total, name)
	if _, err := n.bot.Send(n.chat, text); err != nil {
		return fmt.Errorf("telegram: send message: %w", err)
	}

	if !n.sendFile {
		return nil
	}

	info, err := os.Stat(filePath)
	if err != nil {
		return fmt.Errorf("telegram: stat export: %w", err)
	}
	if info.Size() > MaxDocumentSize {
		logger.Info(ctx, "Export file too large for Telegram, skipping upload",
			"file", name,
			"size", info.Size(),
		)
		return nil
	}

	doc := &tele.Document{
		File:     tele.FromDisk(filePath),
		FileName: name,
		MIME:     "application/json",
	}
	if _, err := n.bot.Send(n.chat, doc); err != nil {
		return fmt.Errorf("telegram: send document: %w", err)
	}
	return nil
}
