package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap"
)

// PaymentSettledEvent 结算成功后发布的事件
type PaymentSettledEvent struct {
	PaymentID          uint      `json:"payment_id"`
	Reference          string    `json:"reference"`
	ResidentID         uint      `json:"resident_id"`
	CashierID          uint      `json:"cashier_id"`
	TenderedAmount     string    `json:"tendered_amount"`
	DuesApplied        int       `json:"dues_applied"`
	DueIDs             []uint    `json:"due_ids"`
	RemainingUnapplied string    `json:"remaining_unapplied"`
	SettledAt          time.Time `json:"settled_at"`
}

// Publisher 发布领域事件
type Publisher interface {
	PublishPaymentSettled(ctx context.Context, event PaymentSettledEvent) error
	Close() error
}

// KafkaPublisher 基于 sarama 同步生产者
type KafkaPublisher struct {
	producer sarama.SyncProducer
	topic    string
	log      *zap.Logger
}

// NewKafkaPublisher 连接 Kafka 并创建发布者
func NewKafkaPublisher(brokers []string, topic string, log *zap.Logger) (*KafkaPublisher, error) {
	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 3

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}
	return NewKafkaPublisherWithProducer(producer, topic, log), nil
}

// NewKafkaPublisherWithProducer 使用已有的生产者（测试可注入 mocks）
func NewKafkaPublisherWithProducer(producer sarama.SyncProducer, topic string, log *zap.Logger) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, topic: topic, log: log}
}

// PublishPaymentSettled 以付款ID为key发布，保证同一付款的事件有序
func (p *KafkaPublisher) PublishPaymentSettled(ctx context.Context, event PaymentSettledEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal payment.settled event: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(strconv.FormatUint(uint64(event.PaymentID), 10)),
		Value: sarama.ByteEncoder(data),
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("send payment.settled event: %w", err)
	}

	p.log.Debug("payment.settled event published",
		zap.String("reference", event.Reference),
		zap.Int32("partition", partition),
		zap.Int64("offset", offset))
	return nil
}

// Close 关闭生产者
func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}

// NopPublisher 未配置 Kafka 时使用
type NopPublisher struct{}

// PublishPaymentSettled 丢弃事件
func (NopPublisher) PublishPaymentSettled(context.Context, PaymentSettledEvent) error { return nil }

// Close 无操作
func (NopPublisher) Close() error { return nil }
