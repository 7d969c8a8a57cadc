package bot

import (
	"context"
	"sync"
	"testing"
	"time"

	"gw-ipn-relay/internal/custom_err"
	"gw-ipn-relay/pkg/logger"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAPI struct {
	mu        sync.Mutex
	sent      []tgbotapi.MessageConfig
	callbacks []tgbotapi.CallbackConfig
	updates   chan tgbotapi.Update
	stopped   bool
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{updates: make(chan tgbotapi.Update, 10)}
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		f.sent = append(f.sent, msg)
	}
	return tgbotapi.Message{}, nil
}

func (f *fakeAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if cb, ok := c.(tgbotapi.CallbackConfig); ok {
		f.callbacks = append(f.callbacks, cb)
	}
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeAPI) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return f.updates
}

func (f *fakeAPI) StopReceivingUpdates() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = true
}

func (f *fakeAPI) messages() []tgbotapi.MessageConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]tgbotapi.MessageConfig(nil), f.sent...)
}

func newTestBot(t *testing.T, api *fakeAPI) *TelegramBot {
	t.Helper()
	f := setupRouter(t, true, "")
	return newTelegramBot(api, f.router, 1000, time.Second, logger.NewDiscard())
}

func TestTelegramBot_Send(t *testing.T) {
	api := newFakeAPI()
	b := newTestBot(t, api)

	require.NoError(t, b.Send(context.Background(), "42", "hello"))

	msgs := api.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, int64(42), msgs[0].ChatID)
	assert.Equal(t, "hello", msgs[0].Text)
}

func TestTelegramBot_SendRejectsNonNumericChat(t *testing.T) {
	b := newTestBot(t, newFakeAPI())

	err := b.Send(context.Background(), "@channel", "hello")
	assert.ErrorIs(t, err, custom_err.ErrInvalidInput)
}

func TestTelegramBot_SendHonoursContext(t *testing.T) {
	api := newFakeAPI()
	b := newTelegramBot(api, nil, 0.001, time.Second, logger.NewDiscard())
	require.NoError(t, b.Send(context.Background(), "1", "first"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	assert.Error(t, b.Send(ctx, "1", "second"))
	assert.Len(t, api.messages(), 1)
}

func TestInlineKeyboard(t *testing.T) {
	markup := inlineKeyboard(mainMenuKeyboard())

	require.Len(t, markup.InlineKeyboard, 3)
	require.Len(t, markup.InlineKeyboard[0], 2)
	assert.Equal(t, "💰 Balance", markup.InlineKeyboard[0][0].Text)
	require.NotNil(t, markup.InlineKeyboard[0][0].CallbackData)
	assert.Equal(t, "menu_balance", *markup.InlineKeyboard[0][0].CallbackData)
}

func TestTelegramBot_RunRoutesUpdates(t *testing.T) {
	api := newFakeAPI()
	b := newTestBot(t, api)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		b.Run(ctx)
		close(done)
	}()

	api.updates <- tgbotapi.Update{Message: &tgbotapi.Message{
		Text: "/menu",
		Chat: &tgbotapi.Chat{ID: 7},
	}}
	api.updates <- tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb-1",
		Data:    "cashout_all_8",
		Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 7}},
	}}

	require.Eventually(t, func() bool {
		api.mu.Lock()
		defer api.mu.Unlock()
		return len(api.sent) == 1 && len(api.callbacks) == 1
	}, time.Second, 10*time.Millisecond)

	cancel()
	<-done

	msgs := api.messages()
	assert.Equal(t, mainMenuText, msgs[0].Text)
	assert.NotNil(t, msgs[0].ReplyMarkup)

	api.mu.Lock()
	defer api.mu.Unlock()
	assert.Equal(t, "cb-1", api.callbacks[0].CallbackQueryID)
	assert.Equal(t, notForYouText, api.callbacks[0].Text)
	assert.True(t, api.stopped)
}
