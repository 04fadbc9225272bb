package verdict

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"
)

// DefaultStream is the Redis stream verdicts are appended to.
const DefaultStream = "ruleset_verdicts"

// Message is the payload pushed for every gate verdict.
type Message struct {
	AttemptID      string   `json:"attempt_id"`
	Lane           string   `json:"lane"`
	Pass           bool     `json:"pass"`
	Failures       []string `json:"failures"`
	MelodramaScore float64  `json:"melodrama_score"`
	NuanceScore    float64  `json:"nuance_score"`
}

// Values flattens m into stream fields, with the full message under "payload".
func (m Message) Values() (map[string]any, error) {
	msgJSON, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshal verdict: %w", err)
	}
	return map[string]any{
		"attempt_id":      m.AttemptID,
		"lane":            m.Lane,
		"pass":            strconv.FormatBool(m.Pass),
		"failures":        strings.Join(m.Failures, ","),
		"melodrama_score": strconv.FormatFloat(m.MelodramaScore, 'f', -1, 64),
		"nuance_score":    strconv.FormatFloat(m.NuanceScore, 'f', -1, 64),
		"payload":         string(msgJSON),
	}, nil
}

// Decode rebuilds a Message from stream fields, preferring the JSON payload.
func Decode(values map[string]any) (Message, error) {
	if raw := getString(values, "payload"); raw != "" {
		var m Message
		if err := json.Unmarshal([]byte(raw), &m); err != nil {
			return Message{}, fmt.Errorf("decode verdict payload: %w", err)
		}
		return m, nil
	}

	m := Message{
		AttemptID: getString(values, "attempt_id"),
		Lane:      getString(values, "lane"),
		Pass:      getString(values, "pass") == "true",
		Failures:  []string{},
	}
	if f := getString(values, "failures"); f != "" {
		m.Failures = strings.Split(f, ",")
	}
	m.MelodramaScore, _ = strconv.ParseFloat(getString(values, "melodrama_score"), 64)
	m.NuanceScore, _ = strconv.ParseFloat(getString(values, "nuance_score"), 64)
	return m, nil
}

// Publisher hands verdicts to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, msg Message) (string, error)
}

// RedisPublisher appends verdicts to a Redis stream.
type RedisPublisher struct {
	client *redis.Client
	stream string
}

// NewRedisPublisher creates a publisher on stream (DefaultStream when empty).
func NewRedisPublisher(client *redis.Client, stream string) *RedisPublisher {
	if stream == "" {
		stream = DefaultStream
	}
	return &RedisPublisher{client: client, stream: stream}
}

// ConnectRedis creates a Redis client from a URL.
func ConnectRedis(redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	return redis.NewClient(opts), nil
}

// Stream returns the stream name verdicts are written to.
func (p *RedisPublisher) Stream() string {
	return p.stream
}

// Publish adds msg to the verdict stream and returns the entry ID.
func (p *RedisPublisher) Publish(ctx context.Context, msg Message) (string, error) {
	values, err := msg.Values()
	if err != nil {
		return "", err
	}
	id, err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: values,
	}).Result()
	if err != nil {
		return "", fmt.Errorf("publish verdict: %w", err)
	}
	return id, nil
}

// Recent returns up to count of the newest verdicts, newest first.
func (p *RedisPublisher) Recent(ctx context.Context, count int64) ([]Message, error) {
	entries, err := p.client.XRevRangeN(ctx, p.stream, "+", "-", count).Result()
	if err != nil {
		return nil, fmt.Errorf("read verdicts: %w", err)
	}
	out := make([]Message, 0, len(entries))
	for _, e := range entries {
		m, err := Decode(e.Values)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

func getString(values map[string]any, key string) string {
	if v, ok := values[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
