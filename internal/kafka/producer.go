package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"gw-ipn-relay/internal/models"

	"github.com/IBM/sarama"
)

const (
	clientID = "ipn-relay"

	// PaymentRecordedEvent значение заголовка event_type для записанных платежей.
	PaymentRecordedEvent = "payment.recorded"
)

// Producer публикует события о платежах. Ошибка доставки не влияет на журнал.
type Producer interface {
	SendPaymentEvent(ctx context.Context, event models.PaymentEvent) error
	Close() error
}

type KafkaProducer struct {
	producer sarama.SyncProducer
	topic    string
	log      *slog.Logger
}

// producerConfig ключ сообщения txn_id, поэтому события одного платежа
// попадают в одну партицию.
func producerConfig() *sarama.Config {
	cfg := sarama.NewConfig()
	cfg.ClientID = clientID
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Partitioner = sarama.NewHashPartitioner
	cfg.Producer.Retry.Max = 3
	cfg.Producer.Retry.Backoff = 250 * time.Millisecond
	cfg.Producer.Compression = sarama.CompressionSnappy
	cfg.Producer.Timeout = 5 * time.Second
	return cfg
}

func NewKafkaProducer(brokers []string, topic string, log *slog.Logger) (Producer, error) {
	const op = "kafka.NewKafkaProducer"

	sp, err := sarama.NewSyncProducer(brokers, producerConfig())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("kafka producer подключен", slog.String("topic", topic), slog.Any("brokers", brokers))
	return NewKafkaProducerFrom(sp, topic, log), nil
}

// NewKafkaProducerFrom оборачивает готовый sarama.SyncProducer.
func NewKafkaProducerFrom(sp sarama.SyncProducer, topic string, log *slog.Logger) *KafkaProducer {
	return &KafkaProducer{
		producer: sp,
		topic:    topic,
		log:      log.With(slog.String("component", "kafka"), slog.String("topic", topic)),
	}
}

func newPaymentMessage(topic string, event models.PaymentEvent) (*sarama.ProducerMessage, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, err
	}

	return &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(event.TransactionID),
		Value: sarama.ByteEncoder(payload),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event_type"), Value: []byte(PaymentRecordedEvent)},
			{Key: []byte("currency"), Value: []byte(event.Currency)},
		},
		Timestamp: event.Timestamp,
	}, nil
}

// SendPaymentEvent ждёт подтверждения брокера или отмены ctx.
func (p *KafkaProducer) SendPaymentEvent(ctx context.Context, event models.PaymentEvent) error {
	const op = "kafka.SendPaymentEvent"

	msg, err := newPaymentMessage(p.topic, event)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	done := make(chan error, 1)
	go func() {
		partition, offset, err := p.producer.SendMessage(msg)
		if err == nil {
			p.log.Debug("событие о платеже опубликовано",
				slog.String("txn_id", event.TransactionID),
				slog.Int("partition", int(partition)),
				slog.Int64("offset", offset))
		}
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			p.log.Error("не удалось опубликовать событие о платеже",
				slog.String("txn_id", event.TransactionID),
				slog.String("error", err.Error()))
			return fmt.Errorf("%s: %w", op, err)
		}
		return nil
	case <-ctx.Done():
		p.log.Warn("публикация события прервана", slog.String("txn_id", event.TransactionID))
		return fmt.Errorf("%s: %w", op, ctx.Err())
	}
}

func (p *KafkaProducer) Close() error {
	if p.producer == nil {
		return nil
	}
	return p.producer.Close()
}

// NoOpProducer используется при KAFKA_ENABLED=false.
type NoOpProducer struct {
	log *slog.Logger
}

func NewNoOpProducer(log *slog.Logger) Producer {
	return &NoOpProducer{log: log}
}

func (p *NoOpProducer) SendPaymentEvent(_ context.Context, event models.PaymentEvent) error {
	p.log.Debug("kafka отключен, событие пропущено", slog.String("txn_id", event.TransactionID))
	return nil
}

func (p *NoOpProducer) Close() error {
	return nil
}
