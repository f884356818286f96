// Package events publishes transcripts and language changes to Kafka.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"

	"indic-speech-stream-service/internal/models"
	"indic-speech-stream-service/internal/observability/metrics"
	"indic-speech-stream-service/internal/schema"
)

// Publisher writes transcript and language events to separate Kafka topics.
// With Kafka disabled it only logs the events.
type Publisher struct {
	writerTranscript *kafka.Writer
	writerLanguage   *kafka.Writer
	principal        string
	topicTranscript  string
	topicLanguage    string
	enabled          bool
	validator        *schema.Validator
	metrics          *metrics.Metrics
}

// Config holds Kafka publisher configuration.
type Config struct {
	Brokers         []string
	TopicTranscript string
	TopicLanguage   string
	Principal       string
	Enabled         bool
}

// New creates a Kafka event publisher.
func New(cfg *Config) *Publisher {
	m := metrics.DefaultMetrics
	v := schema.New()

	if cfg == nil {
		log.Info().Msg("Kafka disabled (nil config), using log-only mode")
		return &Publisher{
			enabled:   false,
			validator: v,
			metrics:   m,
		}
	}

	if !cfg.Enabled || len(cfg.Brokers) == 0 {
		log.Info().Msg("Kafka disabled, using log-only mode")
		return &Publisher{
			principal:       cfg.Principal,
			topicTranscript: cfg.TopicTranscript,
			topicLanguage:   cfg.TopicLanguage,
			enabled:         false,
			validator:       v,
			metrics:         m,
		}
	}

	// Longer dial timeout for DNS resolution in Kubernetes
	dialer := &kafka.Dialer{
		Timeout:   10 * time.Second,
		DualStack: true,
	}
	transport := &kafka.Transport{
		Dial: dialer.DialFunc,
	}

	newWriter := func(topic string) *kafka.Writer {
		return &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			BatchTimeout: 10 * time.Millisecond,
			WriteTimeout: 10 * time.Second,
			RequiredAcks: kafka.RequireOne,
			Transport:    transport,
		}
	}

	log.Info().
		Strs("brokers", cfg.Brokers).
		Str("topicTranscript", cfg.TopicTranscript).
		Str("topicLanguage", cfg.TopicLanguage).
		Str("principal", cfg.Principal).
		Msg("Kafka publisher initialized")

	return &Publisher{
		writerTranscript: newWriter(cfg.TopicTranscript),
		writerLanguage:   newWriter(cfg.TopicLanguage),
		principal:        cfg.Principal,
		topicTranscript:  cfg.TopicTranscript,
		topicLanguage:    cfg.TopicLanguage,
		enabled:          true,
		validator:        v,
		metrics:          m,
	}
}

// Enabled reports whether events reach Kafka.
func (p *Publisher) Enabled() bool {
	return p.enabled
}

// PublishTranscript publishes a transcript keyed by session so a session's
// windows stay ordered within one partition.
func (p *Publisher) PublishTranscript(ctx context.Context, event models.TranscriptEvent) error {
	if err := p.validator.Validate(event); err != nil {
		return err
	}
	return p.publish(ctx, p.writerTranscript, p.topicTranscript, event.EventType, event.SessionID, event)
}

// PublishLanguage publishes a language change.
func (p *Publisher) PublishLanguage(ctx context.Context, event models.LanguageEvent) error {
	if err := p.validator.Validate(event); err != nil {
		return err
	}
	return p.publish(ctx, p.writerLanguage, p.topicLanguage, event.EventType, event.Language, event)
}

func (p *Publisher) publish(ctx context.Context, writer *kafka.Writer, topic, eventType, key string, event any) error {
	start := time.Now()

	payload, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("topic", topic).Msg("Failed to marshal event")
		return err
	}

	log.Debug().
		Str("principal", p.principal).
		Str("topic", topic).
		Str("key", key).
		RawJSON("payload", payload).
		Msg("Publishing event")

	if !p.enabled || writer == nil {
		p.metrics.RecordKafkaPublish(topic, eventType, nil, time.Since(start).Seconds())
		return nil
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "eventType", Value: []byte(eventType)},
			{Key: "principal", Value: []byte(p.principal)},
		},
	}

	if err := writer.WriteMessages(ctx, msg); err != nil {
		log.Error().
			Err(err).
			Str("topic", topic).
			Str("key", key).
			Msg("Failed to write to Kafka")
		p.metrics.RecordKafkaPublish(topic, eventType, err, time.Since(start).Seconds())
		return err
	}

	p.metrics.RecordKafkaPublish(topic, eventType, nil, time.Since(start).Seconds())
	return nil
}

// Close flushes and closes both writers.
func (p *Publisher) Close() error {
	var errs []error
	for topic, w := range map[string]*kafka.Writer{
		p.topicTranscript: p.writerTranscript,
		p.topicLanguage:   p.writerLanguage,
	} {
		if w == nil {
			continue
		}
		if err := w.Close(); err != nil {
			log.Error().Err(err).Str("topic", topic).Msg("Failed to close Kafka writer")
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
