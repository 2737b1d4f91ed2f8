package redisclient

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// WakeKey is the list the API pushes to after enqueueing a job.
const WakeKey = "contacthub:jobs:wake"

type Client struct {
	redisdb *redis.Client
}

type Config struct {
	Addr     string
	Password string
	DB       int
}

func New(cfg Config) *Client {
	redisdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})

	return &Client{redisdb: redisdb}
}

func (c *Client) Ping(ctx context.Context) error {
	return c.redisdb.Ping(ctx).Err()
}

func (c *Client) Close() error {
	return c.redisdb.Close()
}

// Nudge records that work is waiting. The list is capped so a stalled
// worker fleet cannot grow it without bound.
func (c *Client) Nudge(ctx context.Context) error {
	_, err := c.redisdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.LPush(ctx, WakeKey, time.Now().UTC().UnixMilli())
		p.LTrim(ctx, WakeKey, 0, 99)
		return nil
	})
	return err
}

// Wait blocks until a nudge arrives or timeout passes. It reports whether
// a nudge was consumed.
func (c *Client) Wait(ctx context.Context, timeout time.Duration) (bool, error) {
	err := c.redisdb.BRPop(ctx, timeout, WakeKey).Err()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		return false, err
	}
	return true, nil
}
