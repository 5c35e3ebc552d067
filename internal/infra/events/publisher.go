package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"badgeshop/internal/config"
	"badgeshop/internal/domain/model"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

type EventType string

const (
	EventTypeOrderCreated            EventType = "order.created"
	EventTypeOrderSettled            EventType = "order.settled"
	EventTypeWithdrawalStatusChanged EventType = "withdrawal.status_changed"
)

// Event はtopicに流す共通エンベロープ
type Event struct {
	ID        string            `json:"id"`
	Type      EventType         `json:"type"`
	OrderID   int64             `json:"order_id,omitempty"`
	UserID    int64             `json:"user_id"`
	Data      json.RawMessage   `json:"data"`
	Metadata  map[string]string `json:"metadata"`
	Timestamp time.Time         `json:"timestamp"`
}

// kafka.Writerのうち使う部分（テストで差し替える）
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaPublisher struct {
	writer messageWriter
	log    *slog.Logger
	now    func() time.Time
}

func NewKafkaPublisher(cfg config.Kafka, log *slog.Logger) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		WriteTimeout: 10 * time.Second,
		RequiredAcks: kafka.RequireOne,
	}
	return newPublisher(w, log)
}

func newPublisher(w messageWriter, log *slog.Logger) *KafkaPublisher {
	if log == nil {
		log = slog.Default()
	}
	return &KafkaPublisher{writer: w, log: log, now: time.Now}
}

func (p *KafkaPublisher) PublishOrderCreated(ctx context.Context, order model.Order) error {
	data, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("marshal order: %w", err)
	}
	ev := p.newEvent(EventTypeOrderCreated, order.ID, order.UserID, data)
	ev.Metadata["gateway"] = order.Gateway
	ev.Metadata["gateway_order_id"] = order.GatewayOrderID
	return p.publish(ctx, strconv.FormatInt(order.ID, 10), ev)
}

func (p *KafkaPublisher) PublishOrderSettled(ctx context.Context, order model.Order, previous model.OrderStatus) error {
	payload := struct {
		Order          model.Order       `json:"order"`
		PreviousStatus model.OrderStatus `json:"previous_status"`
		NewStatus      model.OrderStatus `json:"new_status"`
	}{
		Order:          order,
		PreviousStatus: previous,
		NewStatus:      order.Status,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal settled order: %w", err)
	}
	ev := p.newEvent(EventTypeOrderSettled, order.ID, order.UserID, data)
	ev.Metadata["gateway"] = order.Gateway
	ev.Metadata["status"] = string(order.Status)
	return p.publish(ctx, strconv.FormatInt(order.ID, 10), ev)
}

func (p *KafkaPublisher) PublishWithdrawalStatusChanged(ctx context.Context, w model.WithdrawalRequest, previous model.WithdrawalStatus) error {
	payload := struct {
		ID             int64                  `json:"id"`
		Amount         int64                  `json:"amount"`
		Method         model.WithdrawalMethod `json:"method"`
		PreviousStatus model.WithdrawalStatus `json:"previous_status"`
		NewStatus      model.WithdrawalStatus `json:"new_status"`
		TransactionID  string                 `json:"transaction_id,omitempty"`
	}{
		ID:             w.ID,
		Amount:         w.Amount,
		Method:         w.Method,
		PreviousStatus: previous,
		NewStatus:      w.Status,
		TransactionID:  w.TransactionID,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal withdrawal: %w", err)
	}
	ev := p.newEvent(EventTypeWithdrawalStatusChanged, 0, w.InfluencerID, data)
	ev.Metadata["withdrawal_id"] = strconv.FormatInt(w.ID, 10)
	// 出金はインフルエンサー単位で順序を保つ
	return p.publish(ctx, "influencer:"+strconv.FormatInt(w.InfluencerID, 10), ev)
}

func (p *KafkaPublisher) newEvent(t EventType, orderID, userID int64, data []byte) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      t,
		OrderID:   orderID,
		UserID:    userID,
		Data:      data,
		Metadata:  map[string]string{},
		Timestamp: p.now().UTC(),
	}
}

func (p *KafkaPublisher) publish(ctx context.Context, key string, ev Event) error {
	value, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(ev.Type)},
			{Key: "event_id", Value: []byte(ev.ID)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish %s: %w", ev.Type, err)
	}

	p.log.DebugContext(ctx, "event published",
		slog.String("event_id", ev.ID),
		slog.String("event_type", string(ev.Type)),
		slog.Int64("order_id", ev.OrderID),
	)
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// kafka未設定時
type NopPublisher struct{}

func (NopPublisher) PublishOrderCreated(ctx context.Context, order model.Order) error { return nil }

func (NopPublisher) PublishOrderSettled(ctx context.Context, order model.Order, previous model.OrderStatus) error {
	return nil
}

func (NopPublisher) PublishWithdrawalStatusChanged(ctx context.Context, w model.WithdrawalRequest, previous model.WithdrawalStatus) error {
	return nil
}
