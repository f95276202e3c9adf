package rabbitmq

import (
	"context"
	"encoding/json"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"live-session-service/config"
	"live-session-service/dto"
)

// Queue topology shared with the transcode worker. The producer declares the
// same exchanges, queues and dead-letter wiring the consumers declare, so
// whichever side starts first the messages land durably.
const (
	transcodingExchange   = "transcoding_exchange"
	transcodingQueue      = "transcoding_queue"
	transcodingRoutingKey = "transcoding.request"

	recordingExchange   = "recording_exchange"
	recordingQueue      = "recording_merge_queue"
	recordingRoutingKey = "recording.merge.request"

	dlxName       = "transcoding_exchange_dlx"
	dlqName       = "recording_merge_queue_dlq"
	dlqRoutingKey = "dlq.recording.merge.request"
)

// Publisher dispatches merge/transcode jobs; it never waits for a response.
type Publisher interface {
	PublishRecordingMerge(ctx context.Context, message dto.RecordingMergeMessage) error
	PublishTranscode(ctx context.Context, message dto.JobMessage) error
}

type publisher struct {
	conn *amqp.Connection
	cfg  *config.RabbitMQ
}

func NewPublisher(conn *amqp.Connection, cfg *config.RabbitMQ) (Publisher, error) {
	p := &publisher{
		conn: conn,
		cfg:  cfg,
	}
	if err := p.declareTopology(); err != nil {
		return nil, err
	}

	return p, nil
}

func (p *publisher) declareTopology() error {
	ch, err := p.conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	if err := ch.ExchangeDeclare(transcodingExchange, p.cfg.Kind, true, false, false, false, nil); err != nil {
		return err
	}
	if err := ch.ExchangeDeclare(recordingExchange, p.cfg.Kind, true, false, false, false, nil); err != nil {
		return err
	}
	if err := ch.ExchangeDeclare(dlxName, p.cfg.Kind, true, false, false, false, nil); err != nil {
		return err
	}

	dlq, err := ch.QueueDeclare(dlqName, true, false, false, false, nil)
	if err != nil {
		return err
	}
	if err := ch.QueueBind(dlq.Name, dlqRoutingKey, dlxName, false, nil); err != nil {
		return err
	}

	args := amqp.Table{
		"x-dead-letter-exchange":    dlxName,
		"x-dead-letter-routing-key": dlqRoutingKey,
	}
	mergeQueue, err := ch.QueueDeclare(recordingQueue, true, false, false, false, args)
	if err != nil {
		return err
	}
	if err := ch.QueueBind(mergeQueue.Name, recordingRoutingKey, recordingExchange, false, nil); err != nil {
		return err
	}

	transcodeQueue, err := ch.QueueDeclare(transcodingQueue, false, false, false, false, nil)
	if err != nil {
		return err
	}
	if err := ch.QueueBind(transcodeQueue.Name, transcodingRoutingKey, transcodingExchange, false, nil); err != nil {
		return err
	}

	return nil
}

func (p *publisher) publish(ctx context.Context, exchange, routingKey string, payload any) error {
	ch, err := p.conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	err = ch.PublishWithContext(ctx, exchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
	})
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).
			Str("exchange", exchange).
			Str("routing_key", routingKey).
			Msg("failed to publish message")
		return err
	}

	zerolog.Ctx(ctx).Info().
		Str("exchange", exchange).
		Str("routing_key", routingKey).
		Msg("message published")

	return nil
}

func (p *publisher) PublishRecordingMerge(ctx context.Context, message dto.RecordingMergeMessage) error {
	return p.publish(ctx, recordingExchange, recordingRoutingKey, message)
}

func (p *publisher) PublishTranscode(ctx context.Context, message dto.JobMessage) error {
	return p.publish(ctx, transcodingExchange, transcodingRoutingKey, message)
}
