package queue

import (
	"fmt"
	"strings"

	"github.com/paycore/internal/config"
	"github.com/paycore/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// DefaultQueue serves events and other light traffic.
	DefaultQueue = constants.QueueDefault
	// BatchQueue serves the per-unit billing tasks.
	BatchQueue = constants.QueueBatch
)

// Client wraps the asynq producer. Batch tasks are enqueued with
// MaxRetry(0): a failed run goes straight to the archived set, which acts as
// the dead-letter store for operator-driven retry.
type Client struct {
	client  *asynq.Client
	enabled bool
}

// NewClient creates the queue producer.
func NewClient(cfg *config.QueueConfig) (*Client, error) {
	if cfg == nil || !cfg.Enabled {
		return &Client{enabled: false}, nil
	}
	opt := buildRedisOpt(cfg)
	return &Client{
		client:  asynq.NewClient(opt),
		enabled: true,
	}, nil
}

// Enabled reports whether a queue backend is configured.
func (c *Client) Enabled() bool {
	return c != nil && c.enabled && c.client != nil
}

// Close shuts the producer down.
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// EnqueueProcessAccountPayment dispatches one per-account billing unit.
func (c *Client) EnqueueProcessAccountPayment(payload ProcessAccountPaymentPayload) error {
	if !c.Enabled() {
		return nil
	}
	task, err := NewProcessAccountPaymentTask(payload)
	if err != nil {
		return err
	}
	_, err = c.client.Enqueue(task, asynq.Queue(BatchQueue), asynq.MaxRetry(0))
	return err
}

// EnqueueProcessRefund dispatches one refund unit.
func (c *Client) EnqueueProcessRefund(payload ProcessRefundPayload) error {
	if !c.Enabled() {
		return nil
	}
	task, err := NewProcessRefundTask(payload)
	if err != nil {
		return err
	}
	_, err = c.client.Enqueue(task, asynq.Queue(BatchQueue), asynq.MaxRetry(0))
	return err
}

// EnqueueCheckAchStatus dispatches one ACH settlement poll. Polls are not
// retried here; the next scheduled discovery run re-dispatches them.
func (c *Client) EnqueueCheckAchStatus(payload CheckAchStatusPayload) error {
	if !c.Enabled() {
		return nil
	}
	task, err := NewCheckAchStatusTask(payload)
	if err != nil {
		return err
	}
	_, err = c.client.Enqueue(task, asynq.Queue(BatchQueue), asynq.MaxRetry(0))
	return err
}

// EnqueueEventDispatch hands a domain event to the notification side.
func (c *Client) EnqueueEventDispatch(payload EventDispatchPayload) error {
	if !c.Enabled() {
		return nil
	}
	task, err := NewEventDispatchTask(payload)
	if err != nil {
		return err
	}
	_, err = c.client.Enqueue(task, asynq.Queue(DefaultQueue))
	return err
}

// BuildServerConfig produces the worker server settings.
func BuildServerConfig(cfg *config.QueueConfig) (asynq.RedisClientOpt, asynq.Config) {
	opt := buildRedisOpt(cfg)
	concurrency := 10
	if cfg != nil && cfg.Concurrency > 0 {
		concurrency = cfg.Concurrency
	}
	queues := map[string]int{DefaultQueue: 5, BatchQueue: 10}
	if cfg != nil && len(cfg.Queues) > 0 {
		queues = cfg.Queues
	}
	return opt, asynq.Config{
		Concurrency: concurrency,
		Queues:      queues,
	}
}

// BuildRedisOpt exposes the redis connection for inspector use.
func BuildRedisOpt(cfg *config.QueueConfig) asynq.RedisClientOpt {
	return buildRedisOpt(cfg)
}

func buildRedisOpt(cfg *config.QueueConfig) asynq.RedisClientOpt {
	host := "127.0.0.1"
	port := 6379
	password := ""
	db := 0
	if cfg != nil {
		if strings.TrimSpace(cfg.Host) != "" {
			host = strings.TrimSpace(cfg.Host)
		}
		if cfg.Port > 0 {
			port = cfg.Port
		}
		password = cfg.Password
		db = cfg.DB
	}
	return asynq.RedisClientOpt{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		Password: password,
		DB:       db,
	}
}
