package main

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"github.com/visioncare/optometry-backend/shared/utils"
)

// Audit event actions.
const (
	AuditLogin            = "auth.login"
	AuditPermissionUpdate = "permissions.update"
	AuditPermissionReset  = "permissions.reset"
	AuditPermissionInit   = "permissions.initialize"
	AuditOverrideSet      = "permissions.override_set"
	AuditShopCreated      = "shops.created"
	AuditShopDeleted      = "shops.deleted"
	AuditUserDeactivated  = "users.deactivated"
)

// AuditEvent is one security-relevant action, published to Kafka.
type AuditEvent struct {
	ID        uuid.UUID              `json:"id"`
	ShopID    *uuid.UUID             `json:"shop_id,omitempty"`
	UserID    uuid.UUID              `json:"user_id"`
	Action    string                 `json:"action"`
	Detail    map[string]interface{} `json:"detail,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// AuditProducer publishes audit events asynchronously through a buffered
// channel and a worker pool. A nil producer is valid and drops everything:
// auditing is observability, never a request dependency.
type AuditProducer struct {
	writer       *kafka.Writer
	events       chan AuditEvent
	workerCount  int
	breaker      *utils.CircuitBreaker
	shutdownChan chan struct{}
	wg           sync.WaitGroup
}

// NewAuditProducer creates a producer with a worker pool against the broker.
func NewAuditProducer(broker, topic string) *AuditProducer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(broker),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
		BatchSize:    100,
	}

	ap := &AuditProducer{
		writer:       writer,
		events:       make(chan AuditEvent, 1000),
		workerCount:  4,
		breaker:      utils.NewCircuitBreaker(5, 30*time.Second),
		shutdownChan: make(chan struct{}),
	}

	ap.startWorkers()
	return ap
}

func (ap *AuditProducer) startWorkers() {
	for i := 0; i < ap.workerCount; i++ {
		ap.wg.Add(1)
		go ap.worker(i)
	}
	logrus.Infof("Audit producer started %d workers", ap.workerCount)
}

func (ap *AuditProducer) worker(id int) {
	defer ap.wg.Done()

	for {
		select {
		case event := <-ap.events:
			err := ap.breaker.Call(func() error {
				return ap.sendSync(event)
			})
			if err != nil && err != utils.ErrCircuitOpen {
				logrus.WithFields(logrus.Fields{
					"worker": id,
					"action": event.Action,
					"error":  err,
				}).Warn("Failed to publish audit event")
			}
		case <-ap.shutdownChan:
			return
		}
	}
}

func (ap *AuditProducer) sendSync(event AuditEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return ap.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.UserID.String()),
		Value: payload,
	})
}

// Publish enqueues an event without blocking; a full queue drops it.
func (ap *AuditProducer) Publish(userID uuid.UUID, shopID *uuid.UUID, action string, detail map[string]interface{}) {
	if ap == nil {
		return
	}

	event := AuditEvent{
		ID:        uuid.New(),
		ShopID:    shopID,
		UserID:    userID,
		Action:    action,
		Detail:    detail,
		Timestamp: time.Now().UTC(),
	}

	select {
	case ap.events <- event:
	default:
		logrus.WithField("action", action).Warn("Audit queue full, event dropped")
	}
}

// Shutdown stops the workers and closes the writer.
func (ap *AuditProducer) Shutdown() {
	if ap == nil {
		return
	}
	close(ap.shutdownChan)
	ap.wg.Wait()
	if err := ap.writer.Close(); err != nil {
		logrus.Warnf("Failed to close audit writer: %v", err)
	}
}
