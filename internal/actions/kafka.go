package actions

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/NETWORK-Z-Dev/dSyncShop/internal/models"

	"github.com/segmentio/kafka-go"
)

const PublishOrderKey = "publish-order"

type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

type purchaseMessage struct {
	Event       string         `json:"event"`
	ProductID   uint           `json:"product_id"`
	ProductName string         `json:"product_name"`
	Metadata    map[string]any `json:"metadata"`
	OccurredAt  int64          `json:"occurred_at"`
}

// PublishOrder emits a purchase message to Kafka, keyed by product id, so
// downstream services can react to completed purchases.
func PublishOrder(w MessageWriter) Definition {
	return Definition{
		Label: "Publish purchase event",
		Params: []Param{
			{Key: "event", Label: "Event name", Type: "text"},
		},
		Handler: func(ctx context.Context, metadata map[string]any, product *models.Product, params map[string]any) error {
			event, _ := params["event"].(string)
			if event == "" {
				event = "product.purchased"
			}

			value, err := json.Marshal(purchaseMessage{
				Event:       event,
				ProductID:   product.ID,
				ProductName: product.Name,
				Metadata:    metadata,
				OccurredAt:  time.Now().UnixMilli(),
			})
			if err != nil {
				return fmt.Errorf("marshal purchase message: %w", err)
			}

			return w.WriteMessages(ctx, kafka.Message{
				Key:   []byte(strconv.FormatUint(uint64(product.ID), 10)),
				Value: value,
				Headers: []kafka.Header{
					{Key: "event", Value: []byte(event)},
				},
			})
		},
	}
}

func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
	}
}
