package service

import (
	"context"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"gw-ipn-relay/internal/http_client"
	"gw-ipn-relay/internal/models"
)

type MockLedgerRepo struct {
	mock.Mock
}

func (m *MockLedgerRepo) AppendTransaction(ctx context.Context, tx *models.Transaction) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

func (m *MockLedgerRepo) TotalReceived(ctx context.Context) (decimal.Decimal, error) {
	args := m.Called(ctx)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockLedgerRepo) TotalCashedOut(ctx context.Context) (decimal.Decimal, error) {
	args := m.Called(ctx)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockLedgerRepo) CountTransactions(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockLedgerRepo) RecentTransactions(ctx context.Context, limit int) ([]models.Transaction, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Transaction), args.Error(1)
}

func (m *MockLedgerRepo) GetCashOutEntry(ctx context.Context, principal string) (*models.CashOutEntry, error) {
	args := m.Called(ctx, principal)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CashOutEntry), args.Error(1)
}

func (m *MockLedgerRepo) LockLedgerTx(ctx context.Context, tx pgx.Tx) (decimal.Decimal, error) {
	args := m.Called(ctx, tx)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockLedgerRepo) TotalReceivedTx(ctx context.Context, tx pgx.Tx) (decimal.Decimal, error) {
	args := m.Called(ctx, tx)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockLedgerRepo) TotalCashedOutTx(ctx context.Context, tx pgx.Tx) (decimal.Decimal, error) {
	args := m.Called(ctx, tx)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockLedgerRepo) AddCashOutTx(ctx context.Context, tx pgx.Tx, principal string, amount decimal.Decimal) error {
	args := m.Called(ctx, tx, principal, amount)
	return args.Error(0)
}

type MockSessionRepo struct {
	mock.Mock
}

func (m *MockSessionRepo) GetPending(ctx context.Context, principal string) (models.PendingInteraction, error) {
	args := m.Called(ctx, principal)
	return args.Get(0).(models.PendingInteraction), args.Error(1)
}

func (m *MockSessionRepo) SetPending(ctx context.Context, principal string, pending models.PendingInteraction) error {
	args := m.Called(ctx, principal, pending)
	return args.Error(0)
}

type MockSettingsRepo struct {
	mock.Mock
}

func (m *MockSettingsRepo) GetFee(ctx context.Context) (decimal.Decimal, error) {
	args := m.Called(ctx)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockSettingsRepo) SetFee(ctx context.Context, fee decimal.Decimal) error {
	args := m.Called(ctx, fee)
	return args.Error(0)
}

func (m *MockSettingsRepo) EnsureFee(ctx context.Context, fee decimal.Decimal) error {
	args := m.Called(ctx, fee)
	return args.Error(0)
}

type MockTxManager struct {
	mock.Mock
}

func (m *MockTxManager) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	args := m.Called(ctx, fn)
	if args.Error(0) != nil {
		return args.Error(0)
	}
	return fn(nil)
}

type MockRatesClient struct {
	mock.Mock
}

func (m *MockRatesClient) GetUSDRates(ctx context.Context) (*http_client.RatesResponse, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*http_client.RatesResponse), args.Error(1)
}

type MockVerifier struct {
	mock.Mock
}

func (m *MockVerifier) Verify(ctx context.Context, rawBody []byte) error {
	args := m.Called(ctx, rawBody)
	return args.Error(0)
}

type MockConverter struct {
	mock.Mock
}

func (m *MockConverter) Convert(ctx context.Context, amount decimal.Decimal, currency string) (decimal.Decimal, error) {
	args := m.Called(ctx, amount, currency)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

type MockForwarder struct {
	mock.Mock
}

func (m *MockForwarder) Forward(ctx context.Context, url string, body []byte, contentType string) error {
	args := m.Called(ctx, url, body, contentType)
	return args.Error(0)
}

type MockKafkaProducer struct {
	mock.Mock
}

func (m *MockKafkaProducer) SendPaymentEvent(ctx context.Context, event models.PaymentEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockKafkaProducer) Close() error {
	args := m.Called()
	return args.Error(0)
}

type MockArchive struct {
	mock.Mock
}

func (m *MockArchive) SaveNotification(ctx context.Context, n *models.ArchivedNotification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

func (m *MockArchive) Close() error {
	args := m.Called()
	return args.Error(0)
}

// recordingQueue синхронная очередь задач для тестов приёма уведомлений.
type recordingQueue struct {
	mu       sync.Mutex
	payments []*models.Transaction
	forwards []*models.ForwardRequest
	archived []*models.ArchivedNotification
}

func (q *recordingQueue) EnqueuePayment(tx *models.Transaction) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.payments = append(q.payments, tx)
}

func (q *recordingQueue) EnqueueForward(req *models.ForwardRequest) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.forwards = append(q.forwards, req)
}

func (q *recordingQueue) EnqueueArchive(n *models.ArchivedNotification) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.archived = append(q.archived, n)
}

// recordingSender запоминает отправленные сообщения; failFor отклоняет указанные чаты.
type recordingSender struct {
	mu      sync.Mutex
	sent    map[string][]string
	failFor map[string]bool
}

func newRecordingSender(failFor ...string) *recordingSender {
	s := &recordingSender{sent: make(map[string][]string), failFor: make(map[string]bool)}
	for _, id := range failFor {
		s.failFor[id] = true
	}
	return s
}

func (s *recordingSender) Send(_ context.Context, chatID, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failFor[chatID] {
		return errSendFailed
	}
	s.sent[chatID] = append(s.sent[chatID], text)
	return nil
}

func (s *recordingSender) messages(chatID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.sent[chatID]...)
}
