package queue

import (
	"context"
	"encoding/json"
	"time"

	"github.com/KOFI-GYIMAH/git-insights/pkg/logger"
	"github.com/streadway/amqp"
)

const analyzeQueue = "repo_analysis"

// * AnalyzeRequest asks the consumer to re-collect and re-aggregate one
// * repository's history starting from Since
type AnalyzeRequest struct {
	Owner string    `json:"owner"`
	Repo  string    `json:"repo"`
	Since time.Time `json:"since"`
}

type RabbitMQ struct {
	conn    *amqp.Connection
	channel *amqp.Channel
}

func NewRabbitMQ(url string) (*RabbitMQ, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}

	channel, err := conn.Channel()
	if err != nil {
		return nil, err
	}

	return &RabbitMQ{
		conn:    conn,
		channel: channel,
	}, nil
}

func (r *RabbitMQ) declareQueue() (amqp.Queue, error) {
	return r.channel.QueueDeclare(
		analyzeQueue,
		true,
		false,
		false,
		false,
		nil,
	)
}

func (r *RabbitMQ) PublishAnalyzeRequest(ctx context.Context, req AnalyzeRequest) error {
	queue, err := r.declareQueue()
	if err != nil {
		return err
	}

	body, err := json.Marshal(req)
	if err != nil {
		return err
	}

	return r.channel.Publish(
		"",
		queue.Name,
		false,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
		},
	)
}

func (r *RabbitMQ) ConsumeAnalyzeRequests(ctx context.Context, handler func(req AnalyzeRequest) error) error {
	queue, err := r.declareQueue()
	if err != nil {
		return err
	}

	msgs, err := r.channel.Consume(
		queue.Name,
		"",
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return err
	}

	go func() {
		for {
			select {
			case d, ok := <-msgs:
				if !ok {
					return
				}

				var req AnalyzeRequest
				if err := json.Unmarshal(d.Body, &req); err != nil {
					logger.Error("Error decoding analyze request: %v", err)
					continue
				}

				if err := handler(req); err != nil {
					logger.Error("Error handling analyze request for %s/%s: %v", req.Owner, req.Repo, err)
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

func (r *RabbitMQ) Close() error {
	if err := r.channel.Close(); err != nil {
		return err
	}
	return r.conn.Close()
}
