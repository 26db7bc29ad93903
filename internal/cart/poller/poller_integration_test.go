package poller

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	kafkaGo "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/kafka"

	"github.com/fjod/go_storefront/internal/domain"
)

func setupKafka(t *testing.T) string {
	if testing.Short() {
		t.Skip("skipping Kafka container test in short mode")
	}
	ctx := context.Background()

	kafkaContainer, err := kafka.Run(ctx, "confluentinc/confluent-local:7.5.0")
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := kafkaContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate kafka container: %v", err)
		}
	})

	brokers, err := kafkaContainer.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers, "broker address should not be empty")
	return brokers[0]
}

func createTopic(t *testing.T, brokerAddr, topic string) {
	conn, err := kafkaGo.Dial("tcp", brokerAddr)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)

	controllerConn, err := kafkaGo.Dial("tcp", fmt.Sprintf("%s:%d", controller.Host, controller.Port))
	require.NoError(t, err)
	defer controllerConn.Close()

	err = controllerConn.CreateTopics(kafkaGo.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	})
	if err != nil {
		t.Logf("topic creation error (may already exist): %v", err)
	}
}

func TestPoller_ConsumesFromKafka(t *testing.T) {
	broker := setupKafka(t)
	topic := "order-placed"
	createTopic(t, broker, topic)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	carts := &mockCarts{}
	p := NewPoller(carts, topic, "storefront-test", broker)
	defer p.Close()

	payload, err := json.Marshal(domain.OrderPlacedEvent{
		OrderNumber: "ORD0001",
		UserID:      "u-kafka",
		Lines:       []domain.OrderedLine{{ItemID: "i1", Quantity: 1}},
		PlacedAt:    time.Now(),
	})
	require.NoError(t, err)

	w := &kafkaGo.Writer{
		Addr:                   kafkaGo.TCP(broker),
		Topic:                  topic,
		Balancer:               &kafkaGo.LeastBytes{},
		AllowAutoTopicCreation: true,
	}
	require.NoError(t, w.WriteMessages(ctx, kafkaGo.Message{Key: []byte("u-kafka"), Value: payload}))
	require.NoError(t, w.Close())

	go p.Run(ctx)

	require.Eventually(t, func() bool {
		return carts.callCount() == 1
	}, 30*time.Second, 500*time.Millisecond)
	carts.mu.Lock()
	defer carts.mu.Unlock()
	require.Equal(t, "u-kafka", carts.calls[0].userID)
}
