package health

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Probes is the production Checker: it pings Redis and probes the inventory
// service's health endpoint.
type Probes struct {
	Redis       *redis.Client
	HTTP        *http.Client
	UpstreamURL string
}

// PingRedis checks Redis connectivity within the timeout.
func (p Probes) PingRedis(ctx context.Context, timeout time.Duration) error {
	if p.Redis == nil {
		return errors.New("redis not configured")
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return p.Redis.Ping(pingCtx).Err()
}

// PingUpstream checks that the inventory service answers its health route.
func (p Probes) PingUpstream(ctx context.Context, timeout time.Duration) error {
	if p.HTTP == nil || p.UpstreamURL == "" {
		return errors.New("upstream not configured")
	}
	probeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	endpoint := strings.TrimRight(p.UpstreamURL, "/") + "/health"
	req, err := http.NewRequestWithContext(probeCtx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	resp, err := p.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("upstream health status %d", resp.StatusCode)
	}
	return nil
}
