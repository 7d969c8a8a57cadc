package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"gw-ipn-relay/internal/custom_err"
	"gw-ipn-relay/internal/http_client"
	"gw-ipn-relay/internal/metrics"
	"gw-ipn-relay/internal/models"
	"gw-ipn-relay/internal/storage"

	"github.com/google/uuid"
)

const formContentType = "application/x-www-form-urlencoded"

// TaskQueue фоновые задачи, которые ставит приём уведомлений.
type TaskQueue interface {
	EnqueuePayment(tx *models.Transaction)
	EnqueueForward(req *models.ForwardRequest)
	EnqueueArchive(n *models.ArchivedNotification)
}

type Ingestion interface {
	// Ingest возвращает ошибку только если запись в журнал не удалась.
	Ingest(ctx context.Context, rawBody []byte, values url.Values) (models.IngestOutcome, error)
}

type IPNService struct {
	verifier  http_client.Verifier
	converter Converter
	ledger    storage.LedgerRepository
	registry  Registry
	queue     TaskQueue
	metrics   *metrics.Metrics
	log       *slog.Logger
	now       func() time.Time
}

func NewIPNService(
	verifier http_client.Verifier,
	converter Converter,
	ledger storage.LedgerRepository,
	registry Registry,
	queue TaskQueue,
	m *metrics.Metrics,
	log *slog.Logger,
) *IPNService {
	return &IPNService{
		verifier:  verifier,
		converter: converter,
		ledger:    ledger,
		registry:  registry,
		queue:     queue,
		metrics:   m,
		log:       log,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Ingest проверяет, разбирает, конвертирует и записывает уведомление.
// Запись завершается до возврата; оповещения и пересылки уходят в очередь.
// Непроверенные уведомления, дубликаты и сбои записи не пересылаются.
func (s *IPNService) Ingest(ctx context.Context, rawBody []byte, values url.Values) (models.IngestOutcome, error) {
	const op = "service.Ingest"

	receivedAt := s.now()
	txnID := values.Get("txn_id")
	log := s.log.With(slog.String("txn_id", txnID))

	outcome, tx, err := s.record(ctx, rawBody, values, receivedAt)

	s.metrics.IPNReceived(string(outcome))
	s.queue.EnqueueArchive(archiveRecord(values, outcome, receivedAt))

	switch outcome {
	case models.OutcomeRecorded:
		log.Info("платёж записан",
			slog.String("amount_usd", tx.AmountUSD.String()),
			slog.String("currency", tx.Currency))
		s.queue.EnqueuePayment(tx)
		s.forward(ctx, rawBody, txnID)
	case models.OutcomeUnverified, models.OutcomeDuplicate:
		log.Warn("уведомление не обработано", slog.String("outcome", string(outcome)))
	case models.OutcomePersistenceFailed:
		log.Error("не удалось записать платёж", slog.String("error", err.Error()))
		return outcome, fmt.Errorf("%s: %w", op, err)
	default:
		attrs := []any{slog.String("outcome", string(outcome))}
		if err != nil {
			attrs = append(attrs, slog.String("error", err.Error()))
		}
		log.Warn("уведомление не записано в журнал", attrs...)
		s.forward(ctx, rawBody, txnID)
	}

	return outcome, nil
}

func (s *IPNService) record(ctx context.Context, rawBody []byte, values url.Values, receivedAt time.Time) (models.IngestOutcome, *models.Transaction, error) {
	if err := s.verifier.Verify(ctx, rawBody); err != nil {
		return models.OutcomeUnverified, nil, err
	}

	n, err := models.ParseNotification(values)
	if err != nil {
		return models.OutcomeMalformed, nil, fmt.Errorf("%w: %v", custom_err.ErrMalformedNotification, err)
	}

	if !n.Recordable() {
		return models.OutcomeIgnored, nil, nil
	}

	amountUSD, err := s.converter.Convert(ctx, n.Gross, n.Currency)
	if err != nil {
		return models.OutcomeRateUnavailable, nil, err
	}

	tx := &models.Transaction{
		ID:          uuid.New(),
		TxnID:       n.TxnID,
		GrossAmount: n.Gross,
		Currency:    n.Currency,
		AmountUSD:   amountUSD,
		PayerEmail:  n.PayerEmail,
		PaymentDate: n.PaymentDate,
		Subject:     n.Subject,
		RecordedAt:  receivedAt,
	}

	if err := s.ledger.AppendTransaction(ctx, tx); err != nil {
		if errors.Is(err, custom_err.ErrDuplicateRequest) {
			return models.OutcomeDuplicate, nil, err
		}
		return models.OutcomePersistenceFailed, nil, fmt.Errorf("%w: %v", custom_err.ErrPersistenceUnavailable, err)
	}

	return models.OutcomeRecorded, tx, nil
}

func (s *IPNService) forward(ctx context.Context, rawBody []byte, txnID string) {
	urls, err := s.registry.ForwardList(ctx)
	if err != nil {
		s.log.Error("не удалось получить адреса пересылки",
			slog.String("txn_id", txnID),
			slog.String("error", err.Error()))
		return
	}

	for _, u := range urls {
		body := make([]byte, len(rawBody))
		copy(body, rawBody)
		s.queue.EnqueueForward(&models.ForwardRequest{
			URL:         u,
			Body:        body,
			ContentType: formContentType,
			TxnID:       txnID,
		})
	}
}

func archiveRecord(values url.Values, outcome models.IngestOutcome, receivedAt time.Time) *models.ArchivedNotification {
	fields := make(map[string]string, len(values))
	for k := range values {
		fields[k] = values.Get(k)
	}
	return &models.ArchivedNotification{
		TxnID:         values.Get("txn_id"),
		PaymentStatus: values.Get("payment_status"),
		Outcome:       outcome,
		Fields:        fields,
		ReceivedAt:    receivedAt,
	}
}
