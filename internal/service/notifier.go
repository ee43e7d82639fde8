package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/hotel-ops/internal/config"
)

// Notification tells a staff member about work routed to them.
type Notification struct {
	Kind          string         `json:"kind"`
	TargetStaffID string         `json:"target_staff_id"`
	HotelID       string         `json:"hotel_id"`
	SubjectID     string         `json:"subject_id"`
	Title         string         `json:"title,omitempty"`
	Details       map[string]any `json:"details,omitempty"`
	SentAt        time.Time      `json:"sent_at"`
}

// Notifier delivers notifications over one transport.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// NewNotifier selects the transport configured in cfg. rdb is required for
// the redis transport.
func NewNotifier(cfg config.NotificationConfig, rdb *redis.Client, logger *zap.Logger) (Notifier, error) {
	switch cfg.Transport {
	case config.TransportWebhook:
		return NewWebhookNotifier(cfg.WebhookURL, cfg.Timeout()), nil
	case config.TransportRedis:
		if rdb == nil {
			return nil, fmt.Errorf("redis transport selected without a redis client")
		}
		return NewRedisNotifier(rdb, cfg.RedisChannel), nil
	default:
		return NewLogNotifier(logger), nil
	}
}

// LogNotifier writes notifications to the service log.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier builds a LogNotifier.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogNotifier{logger: logger}
}

func (l *LogNotifier) Notify(_ context.Context, n Notification) error {
	l.logger.Info("staff notification",
		zap.String("kind", n.Kind),
		zap.String("target_staff_id", n.TargetStaffID),
		zap.String("subject_id", n.SubjectID),
		zap.Any("details", n.Details))
	return nil
}

// WebhookNotifier POSTs notifications as JSON.
type WebhookNotifier struct {
	url    string
	client *http.Client
}

// NewWebhookNotifier builds a WebhookNotifier with a per-request timeout.
func NewWebhookNotifier(url string, timeout time.Duration) *WebhookNotifier {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &WebhookNotifier{url: url, client: &http.Client{Timeout: timeout}}
}

func (w *WebhookNotifier) Notify(ctx context.Context, n Notification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return err
	}
	return postJSON(ctx, w.client, w.url, body, nil)
}

// RedisNotifier publishes notifications on a pub/sub channel.
type RedisNotifier struct {
	client  *redis.Client
	channel string
}

// NewRedisNotifier builds a RedisNotifier.
func NewRedisNotifier(client *redis.Client, channel string) *RedisNotifier {
	return &RedisNotifier{client: client, channel: channel}
}

func (r *RedisNotifier) Notify(ctx context.Context, n Notification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return err
	}
	return r.client.Publish(ctx, r.channel, body).Err()
}

// postJSON sends body and treats any non-2xx status as an error.
func postJSON(ctx context.Context, client *http.Client, url string, body []byte, headers map[string]string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("POST %s: unexpected status %d", url, resp.StatusCode)
	}
	return nil
}
