package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"gw-ipn-relay/internal/http_client"
	"gw-ipn-relay/internal/kafka"
	"gw-ipn-relay/internal/metrics"
	"gw-ipn-relay/internal/models"
	"gw-ipn-relay/internal/storage"
)

type taskKind string

const (
	taskPayment taskKind = "payment"
	taskForward taskKind = "forward"
	taskArchive taskKind = "archive"
)

type dispatchTask struct {
	kind         taskKind
	transaction  *models.Transaction
	forward      *models.ForwardRequest
	notification *models.ArchivedNotification
}

// Dispatcher фоновая доставка: оповещения, события в kafka, архив и пересылки.
// Очередь ограничена, при переполнении задача отбрасывается.
type Dispatcher struct {
	notifier  *Notifier
	producer  kafka.Producer
	archive   storage.Archive
	forwarder http_client.Forwarder
	metrics   *metrics.Metrics
	log       *slog.Logger

	taskTimeout time.Duration
	queue       chan dispatchTask
	wg          sync.WaitGroup
	stopCh      chan struct{}
	stopOnce    sync.Once
}

func NewDispatcher(
	notifier *Notifier,
	producer kafka.Producer,
	archive storage.Archive,
	forwarder http_client.Forwarder,
	workers, queueSize int,
	m *metrics.Metrics,
	log *slog.Logger,
) *Dispatcher {
	d := &Dispatcher{
		notifier:    notifier,
		producer:    producer,
		archive:     archive,
		forwarder:   forwarder,
		metrics:     m,
		log:         log,
		taskTimeout: 30 * time.Second,
		queue:       make(chan dispatchTask, queueSize),
		stopCh:      make(chan struct{}),
	}

	for i := 0; i < workers; i++ {
		d.wg.Add(1)
		go d.worker(i)
	}

	return d
}

func (d *Dispatcher) EnqueuePayment(tx *models.Transaction) {
	d.enqueue(dispatchTask{kind: taskPayment, transaction: tx})
}

func (d *Dispatcher) EnqueueForward(req *models.ForwardRequest) {
	d.enqueue(dispatchTask{kind: taskForward, forward: req})
}

func (d *Dispatcher) EnqueueArchive(n *models.ArchivedNotification) {
	d.enqueue(dispatchTask{kind: taskArchive, notification: n})
}

func (d *Dispatcher) enqueue(task dispatchTask) {
	select {
	case <-d.stopCh:
		d.log.Warn("dispatcher остановлен, задача отброшена", slog.String("kind", string(task.kind)))
		d.metrics.Dropped(string(task.kind))
		return
	default:
	}

	select {
	case d.queue <- task:
	default:
		d.metrics.Dropped(string(task.kind))
		d.log.Error("очередь dispatcher переполнена, задача отброшена",
			slog.String("kind", string(task.kind)))
	}
}

func (d *Dispatcher) worker(id int) {
	defer d.wg.Done()
	d.log.Debug("dispatch worker started", slog.Int("worker_id", id))

	for {
		select {
		case task := <-d.queue:
			d.process(id, task)

		case <-d.stopCh:
			// дорабатываем то, что уже в очереди
			for {
				select {
				case task := <-d.queue:
					d.process(id, task)
				default:
					d.log.Debug("dispatch worker stopping", slog.Int("worker_id", id))
					return
				}
			}
		}
	}
}

func (d *Dispatcher) process(workerID int, task dispatchTask) {
	ctx, cancel := context.WithTimeout(context.Background(), d.taskTimeout)
	defer cancel()

	switch task.kind {
	case taskPayment:
		d.notifier.NotifyPayment(ctx, task.transaction)
		if err := d.producer.SendPaymentEvent(ctx, models.NewPaymentEvent(task.transaction)); err != nil {
			d.log.Error("kafka send failed",
				slog.Int("worker_id", workerID),
				slog.String("txn_id", task.transaction.TxnID),
				slog.String("error", err.Error()))
		}

	case taskForward:
		req := task.forward
		if err := d.forwarder.Forward(ctx, req.URL, req.Body, req.ContentType); err != nil {
			d.metrics.Forward(metrics.ResultFailure)
			d.log.Warn("пересылка IPN не удалась",
				slog.Int("worker_id", workerID),
				slog.String("url", req.URL),
				slog.String("txn_id", req.TxnID),
				slog.String("error", err.Error()))
			return
		}
		d.metrics.Forward(metrics.ResultSuccess)
		d.log.Info("IPN переслан",
			slog.String("url", req.URL),
			slog.String("txn_id", req.TxnID))

	case taskArchive:
		if err := d.archive.SaveNotification(ctx, task.notification); err != nil {
			d.log.Error("не удалось сохранить уведомление в архив",
				slog.Int("worker_id", workerID),
				slog.String("txn_id", task.notification.TxnID),
				slog.String("error", err.Error()))
		}
	}
}

// Shutdown прекращает приём задач и ждёт, пока воркеры опустошат очередь.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.log.Info("shutting down dispatcher")

	d.stopOnce.Do(func() { close(d.stopCh) })

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.log.Info("all dispatch workers stopped")
		return nil
	case <-ctx.Done():
		d.log.Warn("shutdown timeout exceeded")
		return ctx.Err()
	}
}
