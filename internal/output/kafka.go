package output

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/IBM/sarama"
	"github.com/chrisdamba/prepcast/internal/models"
)

// PrepMessage is published once per forecast day.
type PrepMessage struct {
	RunID     string                      `json:"run_id"`
	Date      string                      `json:"date"`
	Quantity  map[string]float64          `json:"quantities"`
	Top       []models.IngredientQuantity `json:"top_ingredients"`
	CreatedAt int64                       `json:"timestamp"`
}

// TrafficMessage is published once per traffic recommendation.
type TrafficMessage struct {
	RunID string `json:"run_id"`
	Day   string `json:"day"`
	models.TrafficRecommendation
	CreatedAt int64 `json:"timestamp"`
}

type KafkaPublisher struct {
	producer     sarama.SyncProducer
	prepTopic    string
	trafficTopic string
}

// producerConfig is the sarama configuration of the synchronous producer.
func producerConfig(config models.KafkaConfig) *sarama.Config {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Producer.RequiredAcks = sarama.WaitForAll
	saramaConfig.Producer.Retry.Max = config.RetryMax
	saramaConfig.Producer.Retry.Backoff = 100 * time.Millisecond
	saramaConfig.Producer.Return.Successes = true // Must be true for SyncProducer
	saramaConfig.Net.DialTimeout = 30 * time.Second
	saramaConfig.Net.ReadTimeout = 30 * time.Second
	saramaConfig.Net.WriteTimeout = 30 * time.Second
	return saramaConfig
}

func NewSaramaProducer(config models.KafkaConfig) (sarama.SyncProducer, error) {
	brokerList := strings.Split(config.BrokerList, ",")
	producer, err := sarama.NewSyncProducer(brokerList, producerConfig(config))
	if err != nil {
		return nil, fmt.Errorf("failed to create Sarama producer: %w", err)
	}
	log.Printf("Sarama producer created successfully with brokers %v", brokerList)
	return producer, nil
}

func NewKafkaPublisher(producer sarama.SyncProducer, config models.KafkaConfig) *KafkaPublisher {
	return &KafkaPublisher{
		producer:     producer,
		prepTopic:    config.PrepTopic,
		trafficTopic: config.TrafficTopic,
	}
}

func (k *KafkaPublisher) send(topic, key string, v interface{}) error {
	if k.producer == nil {
		return fmt.Errorf("Kafka producer is not initialized")
	}
	msg, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, _, err = k.producer.SendMessage(&sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(msg),
	})
	if err != nil {
		return fmt.Errorf("failed to send message to topic %s: %w", topic, err)
	}
	return nil
}

// PublishPrep sends the margin-adjusted needs of every complete forecast day.
func (k *KafkaPublisher) PublishPrep(runID string, prep models.PrepRecommendation, now time.Time) error {
	if prep.DailyNeeds.Empty() {
		return nil
	}
	for i, day := range prep.DailyNeeds.Index {
		key := models.DateKey(day)
		msg := PrepMessage{
			RunID:     runID,
			Date:      key,
			Quantity:  prep.DailyNeeds.Row(i),
			Top:       prep.TopByDay[key],
			CreatedAt: now.Unix(),
		}
		if err := k.send(k.prepTopic, key, msg); err != nil {
			return err
		}
	}
	return nil
}

// PublishTraffic sends one message per traffic recommendation.
func (k *KafkaPublisher) PublishTraffic(runID string, recs []models.TrafficRecommendation, now time.Time) error {
	for _, rec := range recs {
		key := models.DateKey(rec.Date)
		msg := TrafficMessage{RunID: runID, Day: key, TrafficRecommendation: rec, CreatedAt: now.Unix()}
		if err := k.send(k.trafficTopic, key, msg); err != nil {
			return err
		}
	}
	return nil
}

func (k *KafkaPublisher) Close() error {
	if k.producer != nil {
		return k.producer.Close()
	}
	return nil
}
