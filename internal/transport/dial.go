package transport

import (
	"context"
	"fmt"
	"math/rand"
	"net"
	"time"

	"github.com/rs/zerolog/log"
)

// Dial connects a TCP stream to addr, retrying with backoff. Useful for
// serial-over-TCP bridges such as ser2net or socat.
func Dial(ctx context.Context, addr string, backoff BackoffConfig) (*Stream, error) {
	var d net.Dialer
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	for attempt := 1; ; attempt++ {
		conn, err := d.DialContext(ctx, "tcp", addr)
		if err == nil {
			if tcp, ok := conn.(*net.TCPConn); ok {
				_ = tcp.SetNoDelay(true)
			}
			return NewStream(addr, conn), nil
		}
		if backoff.MaxAttempts > 0 && attempt >= backoff.MaxAttempts {
			return nil, fmt.Errorf("dial %s: giving up after %d attempts: %w", addr, attempt, err)
		}
		delay := NextBackoffDelay(backoff, attempt, rng)
		log.Debug().Str("addr", addr).Int("attempt", attempt).Dur("retry_in", delay).Err(err).Msg("dial failed")

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, fmt.Errorf("dial %s: %w", addr, ctx.Err())
		case <-timer.C:
		}
	}
}
