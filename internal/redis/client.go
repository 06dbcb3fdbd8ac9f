package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

var ErrNotFound = errors.New("key not found")

type Client struct {
	rdb *redis.Client
}

// PaymentLink is what a shareable payment token resolves to.
type PaymentLink struct {
	Token          string    `json:"token"`
	PackageID      string    `json:"packageId"`
	TrackingNumber string    `json:"trackingNumber"`
	Amount         int64     `json:"amount"`
	CreatedAt      time.Time `json:"createdAt"`
	ExpiresAt      time.Time `json:"expiresAt"`
}

func Initialize(redisURL string) (*Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	rdb := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// NewFromClient wraps an existing go-redis client.
func NewFromClient(rdb *redis.Client) *Client {
	return &Client{rdb: rdb}
}

// Payment links

func (c *Client) SetPaymentLink(ctx context.Context, link *PaymentLink, ttl time.Duration) error {
	data, err := json.Marshal(link)
	if err != nil {
		return fmt.Errorf("failed to marshal payment link: %w", err)
	}
	return c.rdb.Set(ctx, paymentLinkKey(link.Token), data, ttl).Err()
}

func (c *Client) GetPaymentLink(ctx context.Context, token string) (*PaymentLink, error) {
	val, err := c.rdb.Get(ctx, paymentLinkKey(token)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get payment link: %w", err)
	}

	var link PaymentLink
	if err := json.Unmarshal([]byte(val), &link); err != nil {
		return nil, fmt.Errorf("failed to unmarshal payment link: %w", err)
	}
	return &link, nil
}

func (c *Client) DeletePaymentLink(ctx context.Context, token string) error {
	return c.rdb.Del(ctx, paymentLinkKey(token)).Err()
}

// Reminder dedupe

// ClaimReminder returns true only for the first caller per package and day.
func (c *Client) ClaimReminder(ctx context.Context, packageID, day string, ttl time.Duration) (bool, error) {
	key := fmt.Sprintf("reminder:%s:%s", packageID, day)
	ok, err := c.rdb.SetNX(ctx, key, 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to claim reminder: %w", err)
	}
	return ok, nil
}

func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

func (c *Client) Close() error {
	return c.rdb.Close()
}

func paymentLinkKey(token string) string {
	return "paylink:" + token
}
