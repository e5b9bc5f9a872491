// Package notify hands provider-facing messages to whatever delivers them.
// Delivery itself (mail templates, SMTP) happens outside this service; the
// server only enqueues.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"serviceinfo/internal/models"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Kind string

const (
	KindServiceApproved     Kind = "service_approved"
	KindActivationRequested Kind = "activation_requested"
)

// Message is the queued payload.
type Message struct {
	Kind      Kind              `json:"kind"`
	UserID    string            `json:"user_id,omitempty"`
	Email     string            `json:"email,omitempty"`
	Data      map[string]string `json:"data"`
	CreatedAt time.Time         `json:"created_at"`
}

type Notifier interface {
	ServiceApproved(ctx context.Context, svc *models.Service, provider *models.Provider) error
	ActivationRequested(ctx context.Context, user *models.User, link string) error
}

func serviceApproved(svc *models.Service, provider *models.Provider) Message {
	return Message{
		Kind:   KindServiceApproved,
		UserID: provider.UserID.String(),
		Data: map[string]string{
			"service_id":    fmt.Sprint(svc.ID),
			"service_name":  svc.NameEN,
			"provider_name": provider.NameEN,
			"service_url":   svc.APIPath(),
		},
		CreatedAt: time.Now().UTC(),
	}
}

func activationRequested(user *models.User, link string) Message {
	return Message{
		Kind:      KindActivationRequested,
		UserID:    user.ID.String(),
		Email:     user.Email,
		Data:      map[string]string{"activation_link": link},
		CreatedAt: time.Now().UTC(),
	}
}

// Pusher is the part of a redis client the queue needs.
type Pusher interface {
	LPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
}

// RedisNotifier pushes JSON messages onto a Redis list consumed by the mailer.
type RedisNotifier struct {
	client Pusher
	queue  string
}

func NewRedisNotifier(client Pusher, queue string) *RedisNotifier {
	return &RedisNotifier{client: client, queue: queue}
}

func (n *RedisNotifier) push(ctx context.Context, msg Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	if err := n.client.LPush(ctx, n.queue, body).Err(); err != nil {
		return fmt.Errorf("enqueue %s: %w", msg.Kind, err)
	}
	return nil
}

func (n *RedisNotifier) ServiceApproved(ctx context.Context, svc *models.Service, provider *models.Provider) error {
	return n.push(ctx, serviceApproved(svc, provider))
}

func (n *RedisNotifier) ActivationRequested(ctx context.Context, user *models.User, link string) error {
	return n.push(ctx, activationRequested(user, link))
}

// LogNotifier only logs. Used when REDIS_URL is unset.
type LogNotifier struct {
	log *zap.Logger
}

func NewLogNotifier(log *zap.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) write(msg Message) {
	n.log.Info("notification",
		zap.String("kind", string(msg.Kind)),
		zap.String("user_id", msg.UserID),
		zap.Any("data", msg.Data),
	)
}

func (n *LogNotifier) ServiceApproved(_ context.Context, svc *models.Service, provider *models.Provider) error {
	n.write(serviceApproved(svc, provider))
	return nil
}

func (n *LogNotifier) ActivationRequested(_ context.Context, user *models.User, link string) error {
	n.write(activationRequested(user, link))
	return nil
}

// NewRedisClient parses url and pings the server. An empty url returns nil.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	if url == "" {
		return nil, nil
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}
