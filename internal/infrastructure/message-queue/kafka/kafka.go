package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/alimikegami/ticket-booking/payment-callback-service/config"
	"github.com/alimikegami/ticket-booking/payment-callback-service/internal/domain"
	"github.com/alimikegami/ticket-booking/payment-callback-service/internal/dto"
	"github.com/oklog/ulid/v2"
	"github.com/segmentio/kafka-go"
)

const defaultWriteTimeout = 5 * time.Second

// CreateKafkaWriter returns a writer that looks up partition leaders and
// redials brokers on its own. The hash balancer keeps every event of a txn
// ref on the same partition.
func CreateKafkaWriter(config *config.Config) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(config.KafkaConfig.BrokerAddress),
		Topic:        config.KafkaConfig.BrokerTopic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		WriteTimeout: defaultWriteTimeout,
	}
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// OutcomePublisher sends finalized ledger entries keyed by txn ref.
type OutcomePublisher struct {
	writer messageWriter
}

func CreateOutcomePublisher(writer *kafka.Writer) *OutcomePublisher {
	return &OutcomePublisher{writer: writer}
}

func (p *OutcomePublisher) PublishOutcome(ctx context.Context, entry domain.LedgerEntry) error {
	value, err := json.Marshal(NewOutcomeMessage(entry))
	if err != nil {
		return err
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultWriteTimeout)
		defer cancel()
	}

	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(entry.TxnRef),
		Value: value,
	})
}

func (p *OutcomePublisher) Close() error {
	return p.writer.Close()
}

func NewOutcomeMessage(entry domain.LedgerEntry) dto.KafkaMessage {
	data := dto.PaymentTransactionFinalized{
		TxnRef:      entry.TxnRef,
		Outcome:     string(entry.Outcome),
		FirstSeenAt: entry.FirstSeenAt,
	}
	if entry.Amount.Valid {
		amount := entry.Amount.Decimal
		data.Amount = &amount
	}

	return dto.KafkaMessage{
		EventID:   ulid.Make().String(),
		EventType: dto.EventPaymentTransactionFinalized,
		Data:      data,
	}
}
