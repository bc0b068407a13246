package output

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/chrisdamba/prepcast/internal/models"
)

func testKafkaConfig() models.KafkaConfig {
	return models.KafkaConfig{PrepTopic: "prep", TrafficTopic: "traffic"}
}

func newMockProducer(t *testing.T) *mocks.SyncProducer {
	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	return mocks.NewSyncProducer(t, config)
}

func TestPublishPrep(t *testing.T) {
	result := sampleResult(t)
	prep := models.PrepRecommendation{
		DailyNeeds: result.Daily,
		TopByDay: map[string][]models.IngredientQuantity{
			"2026-10-15": {{Ingredient: "bun", Quantity: 20}},
		},
	}
	now := time.Date(2026, 10, 14, 18, 0, 0, 0, time.UTC)

	producer := newMockProducer(t)
	producer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		var msg PrepMessage
		if err := json.Unmarshal(val, &msg); err != nil {
			return err
		}
		if msg.RunID != "run1" || msg.Date != "2026-10-15" || msg.Quantity["bun"] != 20 {
			return fmt.Errorf("unexpected message %+v", msg)
		}
		if len(msg.Top) != 1 || msg.CreatedAt != now.Unix() {
			return fmt.Errorf("unexpected message %+v", msg)
		}
		return nil
	})
	producer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		var msg PrepMessage
		if err := json.Unmarshal(val, &msg); err != nil {
			return err
		}
		if msg.Date != "2026-10-16" || msg.Quantity["bun"] != 10 {
			return fmt.Errorf("unexpected message %+v", msg)
		}
		return nil
	})

	publisher := NewKafkaPublisher(producer, testKafkaConfig())
	if err := publisher.PublishPrep("run1", prep, now); err != nil {
		t.Fatal(err)
	}
	if err := publisher.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestPublishTraffic(t *testing.T) {
	recs := []models.TrafficRecommendation{{
		Date:    time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC),
		Weekday: time.Tuesday,
		Level:   models.TrafficHigh,
		Text:    "Expect HEAVY traffic.",
	}}

	producer := newMockProducer(t)
	producer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		var msg map[string]interface{}
		if err := json.Unmarshal(val, &msg); err != nil {
			return err
		}
		if msg["day"] != "2026-10-20" || msg["traffic_level"] != "High" || msg["text_recommendation"] != "Expect HEAVY traffic." {
			return fmt.Errorf("unexpected message %v", msg)
		}
		return nil
	})

	publisher := NewKafkaPublisher(producer, testKafkaConfig())
	if err := publisher.PublishTraffic("run1", recs, time.Now()); err != nil {
		t.Fatal(err)
	}
	if err := publisher.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestPublishFailure(t *testing.T) {
	producer := newMockProducer(t)
	producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	publisher := NewKafkaPublisher(producer, testKafkaConfig())
	recs := []models.TrafficRecommendation{{Date: time.Now(), Text: "x"}}
	err := publisher.PublishTraffic("run1", recs, time.Now())
	if !errors.Is(err, sarama.ErrOutOfBrokers) {
		t.Errorf("err = %v, want ErrOutOfBrokers", err)
	}
	if err := publisher.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestPublishWithoutProducer(t *testing.T) {
	publisher := NewKafkaPublisher(nil, testKafkaConfig())
	recs := []models.TrafficRecommendation{{Date: time.Now(), Text: "x"}}
	if err := publisher.PublishTraffic("run1", recs, time.Now()); err == nil {
		t.Error("expected an error without a producer")
	}
}

func TestProducerConfig(t *testing.T) {
	config := producerConfig(models.KafkaConfig{RetryMax: 7})
	if config.Producer.Retry.Max != 7 || !config.Producer.Return.Successes {
		t.Errorf("retry max = %d, return successes = %v", config.Producer.Retry.Max, config.Producer.Return.Successes)
	}
	if config.Producer.RequiredAcks != sarama.WaitForAll {
		t.Errorf("required acks = %v", config.Producer.RequiredAcks)
	}
	// Consumer settings stay at the sarama defaults.
	if got, want := config.Consumer.Group.Session.Timeout, sarama.NewConfig().Consumer.Group.Session.Timeout; got != want {
		t.Errorf("consumer session timeout = %v, want %v", got, want)
	}
	if err := config.Validate(); err != nil {
		t.Errorf("invalid producer config: %v", err)
	}
}
