package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"gw-ipn-relay/internal/custom_err"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/time/rate"
)

// botAPI часть *tgbotapi.BotAPI, которой пользуется адаптер.
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// TelegramBot получает обновления long polling и доставляет ответы Router.
// Исходящие сообщения ограничены по частоте.
type TelegramBot struct {
	api         botAPI
	router      *Router
	limiter     *rate.Limiter
	pollTimeout time.Duration
	log         *slog.Logger

	wg sync.WaitGroup
}

func NewTelegramBot(token string, router *Router, sendRPS float64, pollTimeout time.Duration, log *slog.Logger) (*TelegramBot, error) {
	const op = "bot.NewTelegramBot"

	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("%s: не удалось подключиться к Telegram API: %w", op, err)
	}

	log.Info("telegram бот авторизован", slog.String("username", api.Self.UserName))
	return newTelegramBot(api, router, sendRPS, pollTimeout, log), nil
}

func newTelegramBot(api botAPI, router *Router, sendRPS float64, pollTimeout time.Duration, log *slog.Logger) *TelegramBot {
	return &TelegramBot{
		api:         api,
		router:      router,
		limiter:     rate.NewLimiter(rate.Limit(sendRPS), 1),
		pollTimeout: pollTimeout,
		log:         log,
	}
}

// Send отправляет текст в чат. Используется для оповещений о платежах.
func (b *TelegramBot) Send(ctx context.Context, chatID string, text string) error {
	return b.send(ctx, Reply{ChatID: chatID, Text: text})
}

func (b *TelegramBot) send(ctx context.Context, reply Reply) error {
	const op = "bot.send"

	id, err := strconv.ParseInt(reply.ChatID, 10, 64)
	if err != nil {
		return fmt.Errorf("%s: chat id %q: %w", op, reply.ChatID, custom_err.ErrInvalidInput)
	}

	if err := b.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	msg := tgbotapi.NewMessage(id, reply.Text)
	if len(reply.Keyboard) > 0 {
		msg.ReplyMarkup = inlineKeyboard(reply.Keyboard)
	}

	if _, err := b.api.Send(msg); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func inlineKeyboard(rows [][]Button) tgbotapi.InlineKeyboardMarkup {
	keyboard := make([][]tgbotapi.InlineKeyboardButton, 0, len(rows))
	for _, row := range rows {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, btn := range row {
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(btn.Text, btn.Data))
		}
		keyboard = append(keyboard, tgbotapi.NewInlineKeyboardRow(buttons...))
	}
	return tgbotapi.NewInlineKeyboardMarkup(keyboard...)
}

// Run читает обновления, пока не отменён ctx, затем ждёт обработчики.
func (b *TelegramBot) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = int(b.pollTimeout.Seconds())

	updates := b.api.GetUpdatesChan(u)
	b.log.Info("telegram polling started")

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			b.wg.Wait()
			b.log.Info("telegram polling stopped")
			return
		case update, ok := <-updates:
			if !ok {
				b.wg.Wait()
				return
			}
			b.wg.Add(1)
			go func(update tgbotapi.Update) {
				defer b.wg.Done()
				b.handleUpdate(ctx, update)
			}(update)
		}
	}
}

func (b *TelegramBot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.Message != nil && update.Message.Text != "":
		chatID := strconv.FormatInt(update.Message.Chat.ID, 10)
		b.deliver(ctx, b.router.HandleText(ctx, chatID, update.Message.Text))

	case update.CallbackQuery != nil:
		cq := update.CallbackQuery
		var chatID string
		if cq.Message != nil && cq.Message.Chat != nil {
			chatID = strconv.FormatInt(cq.Message.Chat.ID, 10)
		} else if cq.From != nil {
			chatID = strconv.FormatInt(cq.From.ID, 10)
		}

		replies := b.router.HandleCallback(ctx, chatID, cq.Data)
		b.answer(cq.ID, replies)
		b.deliver(ctx, replies)
	}
}

// answer подтверждает нажатие кнопки. Telegram ждёт ответ на каждый callback.
func (b *TelegramBot) answer(callbackID string, replies []Reply) {
	text := ""
	for _, r := range replies {
		if r.Answer != "" {
			text = r.Answer
			break
		}
	}

	if _, err := b.api.Request(tgbotapi.NewCallback(callbackID, text)); err != nil {
		b.log.Warn("не удалось ответить на callback",
			slog.String("callback_id", callbackID),
			slog.String("error", err.Error()))
	}
}

func (b *TelegramBot) deliver(ctx context.Context, replies []Reply) {
	for _, r := range replies {
		if r.Text == "" {
			continue
		}
		if err := b.send(ctx, r); err != nil {
			b.log.Error("не удалось отправить ответ",
				slog.String("chat_id", r.ChatID),
				slog.String("error", err.Error()))
		}
	}
}
