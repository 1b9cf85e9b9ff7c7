//go:build integration

package publish

import (
	"context"
	"encoding/json"
	"net"
	"strconv"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"

	"github.com/kjstillabower/weather-report-service/internal/models"
)

const testTopic = "weather-reports-test"

func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()
	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0",
		tckafka.WithClusterID("test-cluster"),
	)
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Logf("terminate kafka container: %v", err)
		}
	})

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

func createTopic(t *testing.T, broker, topic string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)
	cconn, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer cconn.Close()

	require.NoError(t, cconn.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

// TestKafkaPublisher_RoundTrip publishes a report and reads it back from the topic.
func TestKafkaPublisher_RoundTrip(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testTopic)

	pub := NewKafkaPublisher(KafkaConfig{Brokers: []string{broker}, Topic: testTopic}, nil)
	report := models.Report{
		Point:       models.Point{Lat: 47.6, Lon: -122.3},
		Metric:      true,
		Text:        "# Current Conditions",
		GeneratedAt: time.Now().UTC().Truncate(time.Second),
	}
	require.NoError(t, pub.Publish(ctx, report))
	require.NoError(t, pub.Close())

	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:   []string{broker},
		Topic:     testTopic,
		Partition: 0,
		MinBytes:  1,
		MaxBytes:  10e6,
	})
	defer reader.Close()

	readCtx, readCancel := context.WithTimeout(ctx, 30*time.Second)
	defer readCancel()
	msg, err := reader.ReadMessage(readCtx)
	require.NoError(t, err)

	assert.Equal(t, report.Key(), string(msg.Key))
	var got models.Report
	require.NoError(t, json.Unmarshal(msg.Value, &got))
	assert.Equal(t, report.Text, got.Text)
	assert.True(t, report.GeneratedAt.Equal(got.GeneratedAt))
}
