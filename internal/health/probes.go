package health

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
)

// Probes is the production Checker, probing Redis and the API server.
type Probes struct {
	Redis       *redis.Client
	UpstreamURL string
	HTTP        *http.Client
}

func (p Probes) PingRedis(ctx context.Context, timeout time.Duration) error {
	if p.Redis == nil {
		return errors.New("redis not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return p.Redis.Ping(ctx).Err()
}

// PingUpstream checks reachability only. Any HTTP answer counts as healthy,
// an auth-rejecting API server is still an API server.
func (p Probes) PingUpstream(ctx context.Context, timeout time.Duration) error {
	if p.UpstreamURL == "" {
		return errors.New("upstream not configured")
	}
	client := p.HTTP
	if client == nil {
		client = http.DefaultClient
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.UpstreamURL, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	_ = resp.Body.Close()
	return nil
}
