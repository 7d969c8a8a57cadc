// Package bot разбирает команды и нажатия кнопок чат-бота и отвечает на них.
// Router не зависит от транспорта, TelegramBot доставляет его ответы.
package bot

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"gw-ipn-relay/internal/custom_err"
	"gw-ipn-relay/internal/models"
	"gw-ipn-relay/internal/service"
	"gw-ipn-relay/internal/storage"
)

type Button struct {
	Text string
	Data string
}

// Reply одно исходящее сообщение. Answer используется как ответ на нажатие кнопки;
// ответ с пустым Text в чат не отправляется.
type Reply struct {
	ChatID   string
	Text     string
	Keyboard [][]Button
	Answer   string
}

type Router struct {
	registry         service.Registry
	ledger           service.Ledger
	cashOut          service.CashOut
	auth             service.Auth
	sessions         storage.SessionRepository
	adminID          string
	cashOutAdminOnly bool
	log              *slog.Logger
}

type RouterConfig struct {
	AdminID          string
	CashOutAdminOnly bool
}

// NewRouter собирает роутер. auth может быть nil, тогда /token отвечает, что API выключен.
func NewRouter(
	registry service.Registry,
	ledger service.Ledger,
	cashOut service.CashOut,
	auth service.Auth,
	sessions storage.SessionRepository,
	cfg RouterConfig,
	log *slog.Logger,
) *Router {
	return &Router{
		registry:         registry,
		ledger:           ledger,
		cashOut:          cashOut,
		auth:             auth,
		sessions:         sessions,
		adminID:          cfg.AdminID,
		cashOutAdminOnly: cfg.CashOutAdminOnly,
		log:              log,
	}
}

func (r *Router) isAdmin(chatID string) bool {
	return chatID == r.adminID
}

// parseCommand разбирает "/cmd@bot args". Дефис и подчёркивание в имени равнозначны.
func parseCommand(text string) (string, string, bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return "", "", false
	}

	name, args, _ := strings.Cut(text[1:], " ")
	if at := strings.Index(name, "@"); at >= 0 {
		name = name[:at]
	}
	name = strings.ReplaceAll(strings.ToLower(name), "_", "-")
	return name, strings.TrimSpace(args), name != ""
}

// HandleText обрабатывает входящее текстовое сообщение.
func (r *Router) HandleText(ctx context.Context, chatID, text string) []Reply {
	if name, args, ok := parseCommand(text); ok {
		return r.handleCommand(ctx, chatID, name, args)
	}
	if strings.HasPrefix(strings.TrimSpace(text), "/") {
		return nil
	}
	return r.handlePending(ctx, chatID, text)
}

func (r *Router) handleCommand(ctx context.Context, chatID, name, args string) []Reply {
	switch name {
	case "start":
		return r.start(ctx, chatID)
	case "help":
		return r.text(chatID, helpText)
	case "menu":
		return []Reply{{ChatID: chatID, Text: mainMenuText, Keyboard: mainMenuKeyboard()}}
	case "balance":
		return r.balance(ctx, chatID)
	case "transactions":
		return r.transactions(ctx, chatID)
	case "cashout":
		return r.openCashOut(ctx, chatID)
	case "status":
		return r.status(ctx, chatID)
	case "setfee":
		return r.setFee(ctx, chatID, args)
	case "notify":
		return r.notify(ctx, chatID, args)
	case "unnotify":
		return r.unnotify(ctx, chatID, args)
	case "notificationlist":
		return r.notificationList(ctx, chatID)
	case "forward":
		return r.addForward(ctx, chatID, args)
	case "remove-forward":
		return r.removeForward(ctx, chatID, args)
	case "list-forward":
		return r.listForward(ctx, chatID)
	case "forward-menu":
		return r.forwardMenu(ctx, chatID)
	case "cancel":
		return r.cancel(ctx, chatID)
	case "token":
		return r.token(chatID)
	}
	return nil
}

// HandleCallback обрабатывает нажатие inline-кнопки.
func (r *Router) HandleCallback(ctx context.Context, chatID, data string) []Reply {
	switch data {
	case "menu_balance":
		return r.balance(ctx, chatID)
	case "menu_transactions":
		return r.transactions(ctx, chatID)
	case "menu_cashout":
		return r.openCashOut(ctx, chatID)
	case "menu_status":
		return r.status(ctx, chatID)
	case "menu_notifications":
		return r.notificationList(ctx, chatID)
	case "forward_add":
		return r.promptForwardAdd(ctx, chatID)
	case "forward_remove":
		return r.promptForwardRemove(ctx, chatID)
	case "forward_list":
		return r.listForward(ctx, chatID)
	case "forward_clear":
		return r.clearForward(ctx, chatID)
	case "forward_menu":
		return r.forwardMenu(ctx, chatID)
	}

	if strings.HasPrefix(data, "cashout_") {
		return r.cashOutCallback(ctx, chatID, data)
	}

	r.log.Debug("неизвестный callback", slog.String("chat_id", chatID), slog.String("data", data))
	return nil
}

func (r *Router) text(chatID, text string) []Reply {
	return []Reply{{ChatID: chatID, Text: text}}
}

func (r *Router) unavailable(chatID, op string, err error) []Reply {
	r.log.Error("ошибка обработки команды",
		slog.String("op", op),
		slog.String("chat_id", chatID),
		slog.String("error", err.Error()))
	return r.text(chatID, unavailableText)
}

func (r *Router) start(ctx context.Context, chatID string) []Reply {
	const op = "bot.start"

	if _, err := r.registry.Register(ctx, chatID); err != nil {
		return r.unavailable(chatID, op, err)
	}
	return r.text(chatID, welcomeText)
}

func (r *Router) balance(ctx context.Context, chatID string) []Reply {
	const op = "bot.balance"

	summary, err := r.ledger.Balance(ctx)
	if err != nil {
		return r.unavailable(chatID, op, err)
	}
	own, err := r.ledger.CashedOutBy(ctx, chatID)
	if err != nil {
		return r.unavailable(chatID, op, err)
	}
	return r.text(chatID, formatBalance(summary, own))
}

func (r *Router) transactions(ctx context.Context, chatID string) []Reply {
	const op = "bot.transactions"

	txs, err := r.ledger.Recent(ctx, service.DefaultRecentLimit)
	if err != nil {
		return r.unavailable(chatID, op, err)
	}
	return r.text(chatID, formatTransactions(txs))
}

func (r *Router) status(ctx context.Context, chatID string) []Reply {
	const op = "bot.status"

	st, err := r.ledger.Status(ctx)
	if err != nil {
		return r.unavailable(chatID, op, err)
	}
	return r.text(chatID, formatStatus(st))
}

// cashOutAllowed проверяет доступ к выводу: только администратор (если включено) и только после /start.
func (r *Router) cashOutAllowed(ctx context.Context, chatID string) (string, error) {
	if r.cashOutAdminOnly && !r.isAdmin(chatID) {
		return cashOutAdminOnlyText, nil
	}
	registered, err := r.registry.IsRegistered(ctx, chatID)
	if err != nil {
		return "", err
	}
	if !registered {
		return startFirstText, nil
	}
	return "", nil
}

func (r *Router) openCashOut(ctx context.Context, chatID string) []Reply {
	const op = "bot.openCashOut"

	denial, err := r.cashOutAllowed(ctx, chatID)
	if err != nil {
		return r.unavailable(chatID, op, err)
	}
	if denial != "" {
		return r.text(chatID, denial)
	}

	quote, err := r.cashOut.Open(ctx)
	if err != nil {
		if errors.Is(err, custom_err.ErrNoBalance) {
			return r.text(chatID, noBalanceText)
		}
		return r.unavailable(chatID, op, err)
	}

	return []Reply{{
		ChatID:   chatID,
		Text:     formatCashOutMenu(quote),
		Keyboard: cashOutKeyboard(chatID),
	}}
}

func (r *Router) cashOutCallback(ctx context.Context, chatID, data string) []Reply {
	const op = "bot.cashOutCallback"

	parts := strings.SplitN(data, "_", 3)
	if len(parts) != 3 || parts[2] != chatID {
		return []Reply{{ChatID: chatID, Answer: notForYouText}}
	}

	denial, err := r.cashOutAllowed(ctx, chatID)
	if err != nil {
		return r.unavailable(chatID, op, err)
	}
	if denial != "" {
		return r.text(chatID, denial)
	}

	mode := models.CashOutMode(parts[1])
	result, err := r.cashOut.RequestCashOut(ctx, chatID, mode, nil)
	if err != nil {
		switch {
		case errors.Is(err, custom_err.ErrAwaitingInput):
			return r.text(chatID, enterAmountText)
		case errors.Is(err, custom_err.ErrInsufficientBalance):
			return []Reply{{ChatID: chatID, Answer: insufficientAnswerText}}
		case errors.Is(err, custom_err.ErrNoBalance):
			return r.text(chatID, noBalanceText)
		case errors.Is(err, custom_err.ErrInvalidInput):
			return nil
		}
		return r.unavailable(chatID, op, err)
	}
	return r.text(chatID, formatCashOutResult(result))
}

func (r *Router) setFee(ctx context.Context, chatID, args string) []Reply {
	const op = "bot.setFee"

	if !r.isAdmin(chatID) {
		return r.text(chatID, setFeeDeniedText)
	}

	fee, err := models.ParsePlainDecimal(strings.TrimSuffix(args, "%"))
	if err != nil {
		return r.text(chatID, invalidFeeText)
	}
	if err := r.ledger.SetFee(ctx, fee); err != nil {
		if errors.Is(err, custom_err.ErrInvalidFee) {
			return r.text(chatID, invalidFeeText)
		}
		return r.unavailable(chatID, op, err)
	}
	return r.text(chatID, "Cash out fee set to "+fee.String()+"%")
}

func (r *Router) notify(ctx context.Context, chatID, args string) []Reply {
	const op = "bot.notify"

	if !r.isAdmin(chatID) {
		return r.text(chatID, notifyDeniedText)
	}
	if args == "" {
		return r.text(chatID, "Usage: /notify <user_id>")
	}

	if err := r.registry.AddNotify(ctx, args); err != nil {
		if errors.Is(err, custom_err.ErrInvalidInput) {
			return r.text(chatID, invalidUserIDText)
		}
		return r.unavailable(chatID, op, err)
	}
	return r.text(chatID, "User "+args+" added to notification list.")
}

func (r *Router) unnotify(ctx context.Context, chatID, args string) []Reply {
	const op = "bot.unnotify"

	if !r.isAdmin(chatID) {
		return r.text(chatID, unnotifyDeniedText)
	}
	if args == "" {
		return r.text(chatID, "Usage: /unnotify <user_id>")
	}

	if _, err := r.registry.RemoveNotify(ctx, args); err != nil {
		if errors.Is(err, custom_err.ErrInvalidInput) {
			return r.text(chatID, invalidUserIDText)
		}
		return r.unavailable(chatID, op, err)
	}
	return r.text(chatID, "User "+args+" removed from notification list.")
}

func (r *Router) notificationList(ctx context.Context, chatID string) []Reply {
	const op = "bot.notificationList"

	if !r.isAdmin(chatID) {
		return r.text(chatID, notificationListDeniedText)
	}

	list, err := r.registry.NotifyList(ctx)
	if err != nil {
		return r.unavailable(chatID, op, err)
	}
	return r.text(chatID, formatNotificationList(list))
}

func (r *Router) addForward(ctx context.Context, chatID, args string) []Reply {
	const op = "bot.addForward"

	if !r.isAdmin(chatID) {
		return r.text(chatID, forwardAddDeniedText)
	}
	if args == "" {
		return r.promptForwardAdd(ctx, chatID)
	}

	if _, err := r.registry.AddForward(ctx, args); err != nil {
		if errors.Is(err, custom_err.ErrInvalidURL) {
			return r.text(chatID, invalidURLText)
		}
		return r.unavailable(chatID, op, err)
	}
	return r.text(chatID, "URL added to forwarding list:\n"+args)
}

func (r *Router) removeForward(ctx context.Context, chatID, args string) []Reply {
	const op = "bot.removeForward"

	if !r.isAdmin(chatID) {
		return r.text(chatID, forwardRemoveDeniedText)
	}
	if args == "" {
		return r.promptForwardRemove(ctx, chatID)
	}

	removed, _, err := r.registry.RemoveForward(ctx, args)
	if err != nil {
		if errors.Is(err, custom_err.ErrNotFound) || errors.Is(err, custom_err.ErrInvalidInput) {
			return r.text(chatID, "URL not found in forwarding list:\n"+args)
		}
		return r.unavailable(chatID, op, err)
	}
	return r.text(chatID, "URL removed from forwarding list:\n"+removed)
}

func (r *Router) listForward(ctx context.Context, chatID string) []Reply {
	const op = "bot.listForward"

	if !r.isAdmin(chatID) {
		return r.text(chatID, forwardListDeniedText)
	}

	list, err := r.registry.ForwardList(ctx)
	if err != nil {
		return r.unavailable(chatID, op, err)
	}
	if len(list) == 0 {
		return r.text(chatID, noForwardsText)
	}
	return r.text(chatID, "📤 Forwarding URLs:\n\n"+numbered(list))
}

func (r *Router) clearForward(ctx context.Context, chatID string) []Reply {
	const op = "bot.clearForward"

	if !r.isAdmin(chatID) {
		return r.text(chatID, forwardClearDeniedText)
	}

	count, err := r.registry.ClearForward(ctx)
	if err != nil {
		return r.unavailable(chatID, op, err)
	}
	return r.text(chatID, formatCleared(count))
}

func (r *Router) forwardMenu(ctx context.Context, chatID string) []Reply {
	const op = "bot.forwardMenu"

	if !r.isAdmin(chatID) {
		return r.text(chatID, forwardMenuDeniedText)
	}

	list, err := r.registry.ForwardList(ctx)
	if err != nil {
		return r.unavailable(chatID, op, err)
	}
	return []Reply{{
		ChatID:   chatID,
		Text:     formatForwardMenu(list),
		Keyboard: forwardMenuKeyboard(),
	}}
}

func (r *Router) promptForwardAdd(ctx context.Context, chatID string) []Reply {
	const op = "bot.promptForwardAdd"

	if !r.isAdmin(chatID) {
		return r.text(chatID, forwardAddDeniedText)
	}
	if err := r.sessions.SetPending(ctx, chatID, models.PendingForwardURL); err != nil {
		return r.unavailable(chatID, op, err)
	}
	return r.text(chatID, enterForwardURLText)
}

func (r *Router) promptForwardRemove(ctx context.Context, chatID string) []Reply {
	const op = "bot.promptForwardRemove"

	if !r.isAdmin(chatID) {
		return r.text(chatID, forwardRemoveDeniedText)
	}

	list, err := r.registry.ForwardList(ctx)
	if err != nil {
		return r.unavailable(chatID, op, err)
	}
	if len(list) == 0 {
		return r.text(chatID, noForwardsText)
	}

	if err := r.sessions.SetPending(ctx, chatID, models.PendingForwardURLRemove); err != nil {
		return r.unavailable(chatID, op, err)
	}
	return r.text(chatID, "Select a URL to remove:\n\n"+numbered(list)+"\nEnter the number or full URL:")
}

func (r *Router) cancel(ctx context.Context, chatID string) []Reply {
	const op = "bot.cancel"

	pending, err := r.sessions.GetPending(ctx, chatID)
	if err != nil {
		return r.unavailable(chatID, op, err)
	}
	if pending == models.PendingNone {
		return r.text(chatID, nothingToCancelText)
	}
	if err := r.sessions.SetPending(ctx, chatID, models.PendingNone); err != nil {
		return r.unavailable(chatID, op, err)
	}
	return r.text(chatID, cancelledText)
}

func (r *Router) token(chatID string) []Reply {
	const op = "bot.token"

	if !r.isAdmin(chatID) {
		return r.text(chatID, tokenDeniedText)
	}
	if r.auth == nil {
		return r.text(chatID, apiDisabledText)
	}

	resp, err := r.auth.IssueToken(chatID)
	if err != nil {
		if errors.Is(err, custom_err.ErrAuthDisabled) {
			return r.text(chatID, apiDisabledText)
		}
		return r.unavailable(chatID, op, err)
	}
	return r.text(chatID, formatToken(resp))
}

// handlePending направляет свободный текст в ожидаемое взаимодействие.
func (r *Router) handlePending(ctx context.Context, chatID, text string) []Reply {
	const op = "bot.handlePending"

	pending, err := r.sessions.GetPending(ctx, chatID)
	if err != nil {
		return r.unavailable(chatID, op, err)
	}

	switch pending {
	case models.PendingForwardURL:
		return r.submitForwardURL(ctx, chatID, text)
	case models.PendingForwardURLRemove:
		return r.submitForwardRemoval(ctx, chatID, text)
	case models.PendingCashOutAmount:
		return r.submitCashOutAmount(ctx, chatID, text)
	}
	return nil
}

func (r *Router) submitForwardURL(ctx context.Context, chatID, text string) []Reply {
	const op = "bot.submitForwardURL"

	count, err := r.registry.AddForward(ctx, text)
	if err != nil {
		if errors.Is(err, custom_err.ErrInvalidURL) {
			return r.text(chatID, invalidURLText)
		}
		return r.unavailable(chatID, op, err)
	}
	if err := r.sessions.SetPending(ctx, chatID, models.PendingNone); err != nil {
		return r.unavailable(chatID, op, err)
	}
	return r.text(chatID, formatForwardAdded(strings.TrimSpace(text), count))
}

func (r *Router) submitForwardRemoval(ctx context.Context, chatID, text string) []Reply {
	const op = "bot.submitForwardRemoval"

	_, remaining, removeErr := r.registry.RemoveForward(ctx, text)

	if err := r.sessions.SetPending(ctx, chatID, models.PendingNone); err != nil {
		return r.unavailable(chatID, op, err)
	}

	if removeErr != nil {
		if errors.Is(removeErr, custom_err.ErrNotFound) || errors.Is(removeErr, custom_err.ErrInvalidInput) {
			return r.text(chatID, forwardNotFoundText)
		}
		return r.unavailable(chatID, op, removeErr)
	}
	return r.text(chatID, formatForwardRemoved(remaining))
}

func (r *Router) submitCashOutAmount(ctx context.Context, chatID, text string) []Reply {
	const op = "bot.submitCashOutAmount"

	result, err := r.cashOut.SubmitCustomAmount(ctx, chatID, text)
	if err != nil {
		switch {
		case errors.Is(err, custom_err.ErrInvalidAmount):
			return r.text(chatID, invalidAmountText)
		case errors.Is(err, custom_err.ErrInsufficientBalance):
			quote, qErr := r.cashOut.Quote(ctx)
			if qErr != nil {
				return r.unavailable(chatID, op, qErr)
			}
			return r.text(chatID, formatInsufficient(quote.Remaining))
		}
		return r.unavailable(chatID, op, err)
	}
	return r.text(chatID, formatCashOutResult(result))
}
