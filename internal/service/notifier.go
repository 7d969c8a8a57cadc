package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"gw-ipn-relay/internal/metrics"
	"gw-ipn-relay/internal/models"
)

// Sender доставляет текст в чат. Реализуется телеграм-ботом.
type Sender interface {
	Send(ctx context.Context, chatID string, text string) error
}

type Notifier struct {
	registry    Registry
	sender      Sender
	adminID     string
	sendTimeout time.Duration
	metrics     *metrics.Metrics
	log         *slog.Logger
}

func NewNotifier(registry Registry, sender Sender, adminID string, m *metrics.Metrics, log *slog.Logger) *Notifier {
	return &Notifier{
		registry:    registry,
		sender:      sender,
		adminID:     adminID,
		sendTimeout: 15 * time.Second,
		metrics:     m,
		log:         log,
	}
}

func FormatUserAlert(tx *models.Transaction) string {
	return fmt.Sprintf("🎉 New payment received!\n\nAmount: %s %s\nUSD: $%s\nFrom: %s\nTransaction ID: %s",
		tx.GrossAmount.String(),
		strings.ToUpper(tx.Currency),
		tx.AmountUSD.StringFixed(2),
		tx.PayerEmail,
		tx.TxnID,
	)
}

func FormatAdminAlert(tx *models.Transaction) string {
	return fmt.Sprintf("💰 Payment received:\n\n$%s USD (%s %s)",
		tx.AmountUSD.StringFixed(2),
		tx.GrossAmount.String(),
		strings.ToUpper(tx.Currency),
	)
}

// NotifyPayment рассылает оповещения подписчикам и администратору.
// Каждая отправка идёт в своей горутине, ошибки только логируются.
func (n *Notifier) NotifyPayment(ctx context.Context, tx *models.Transaction) {
	audience, err := n.registry.Audience(ctx)
	if err != nil {
		n.log.Error("не удалось получить список получателей",
			slog.String("txn_id", tx.TxnID),
			slog.String("error", err.Error()))
		audience = nil
	}

	userText := FormatUserAlert(tx)

	var wg sync.WaitGroup
	for _, chatID := range audience {
		wg.Add(1)
		go func(chatID string) {
			defer wg.Done()
			n.send(ctx, chatID, userText, tx.TxnID)
		}(chatID)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		n.send(ctx, n.adminID, FormatAdminAlert(tx), tx.TxnID)
	}()

	wg.Wait()
}

func (n *Notifier) send(ctx context.Context, chatID, text, txnID string) {
	ctx, cancel := context.WithTimeout(ctx, n.sendTimeout)
	defer cancel()

	if err := n.sender.Send(ctx, chatID, text); err != nil {
		n.metrics.Alert(metrics.ResultFailure)
		n.log.Warn("не удалось отправить оповещение",
			slog.String("chat_id", chatID),
			slog.String("txn_id", txnID),
			slog.String("error", err.Error()))
		return
	}
	n.metrics.Alert(metrics.ResultSuccess)
}
