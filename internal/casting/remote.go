package casting

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/danielpatrickdp/hexagram-oracle/internal/faults"
)

// #region config

const (
	DefaultRemoteURL      = "https://www.random.org/integers/?num=3&min=2&max=3&col=1&base=10&format=plain&rnd=new"
	DefaultRemoteQuotaURL = "https://www.random.org/quota/?format=plain"
)

// RemoteConfig holds the air strategy's endpoint and failure policy.
type RemoteConfig struct {
	URL            string
	QuotaURL       string
	Timeout        time.Duration // per request
	BreakerTimeout time.Duration // how long the circuit stays open
	MaxFailures    uint32        // consecutive failures before the circuit opens
}

// DefaultRemoteConfig returns the random.org endpoints with conservative limits.
func DefaultRemoteConfig() RemoteConfig {
	return RemoteConfig{
		URL:            DefaultRemoteURL,
		QuotaURL:       DefaultRemoteQuotaURL,
		Timeout:        5 * time.Second,
		BreakerTimeout: 30 * time.Second,
		MaxFailures:    3,
	}
}

// #endregion config

// #region air

// RemoteStrategy (air) asks a remote true-random service for three integers,
// each 2 or 3, per line. Failures surface as faults.ErrUnavailable; nothing
// is retried here.
type RemoteStrategy struct {
	cfg     RemoteConfig
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
	log     *zap.Logger
}

// NewRemote returns the air strategy. A nil logger is replaced with a no-op.
func NewRemote(cfg RemoteConfig, logger *zap.Logger) *RemoteStrategy {
	def := DefaultRemoteConfig()
	if cfg.URL == "" {
		cfg.URL = def.URL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.BreakerTimeout <= 0 {
		cfg.BreakerTimeout = def.BreakerTimeout
	}
	if cfg.MaxFailures == 0 {
		cfg.MaxFailures = def.MaxFailures
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &RemoteStrategy{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		log:    logger,
	}
	s.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "remote-entropy",
		MaxRequests: 1,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.MaxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
		IsSuccessful: func(err error) bool {
			// A caller giving up says nothing about the service.
			return err == nil || errors.Is(err, context.Canceled)
		},
	})
	return s
}

func (s *RemoteStrategy) Method() Method { return MethodAir }

func (s *RemoteStrategy) RequiresExternalResource() bool { return true }

// CastLine fetches three coins from the remote service.
func (s *RemoteStrategy) CastLine(ctx context.Context) (Toss, error) {
	out, err := s.breaker.Execute(func() (interface{}, error) {
		return s.fetch(ctx)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return Toss{}, fmt.Errorf("%w: remote entropy circuit is open: %v", faults.ErrUnavailable, err)
		}
		return Toss{}, err
	}
	return out.(Toss), nil
}

func (s *RemoteStrategy) fetch(ctx context.Context) (Toss, error) {
	body, err := s.get(ctx, s.cfg.URL)
	if err != nil {
		return Toss{}, err
	}
	fields := strings.Fields(body)
	if len(fields) != 3 {
		return Toss{}, fmt.Errorf("%w: remote entropy returned %d values, want 3", faults.ErrUnavailable, len(fields))
	}
	var t Toss
	for i, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil {
			return Toss{}, fmt.Errorf("%w: remote entropy value %q is not an integer", faults.ErrUnavailable, f)
		}
		t.Coins[i] = n
	}
	if !t.Valid() {
		return Toss{}, fmt.Errorf("%w: remote entropy values %v outside {2,3}", faults.ErrUnavailable, t.Coins)
	}
	return t, nil
}

func (s *RemoteStrategy) get(parent context.Context, url string) (string, error) {
	ctx, cancel := context.WithTimeout(parent, s.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("%w: build request: %v", faults.ErrUnavailable, err)
	}
	req.Header.Set("User-Agent", "hexagram-oracle")

	resp, err := s.client.Do(req)
	if err != nil {
		if errors.Is(parent.Err(), context.Canceled) {
			return "", fmt.Errorf("remote entropy: %w", context.Canceled)
		}
		return "", fmt.Errorf("%w: remote entropy request: %v", faults.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return "", fmt.Errorf("%w: read remote entropy: %v", faults.ErrUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: remote entropy status %d: %s", faults.ErrUnavailable, resp.StatusCode, strings.TrimSpace(string(data)))
	}
	return string(data), nil
}

// Available probes the quota endpoint (or the main endpoint when no quota
// URL is configured) without drawing entropy from the breaker's budget.
func (s *RemoteStrategy) Available(ctx context.Context) (bool, string) {
	if s.breaker.State() == gobreaker.StateOpen {
		return false, "remote entropy service failed repeatedly; circuit is open"
	}
	if s.cfg.QuotaURL == "" {
		if _, err := s.get(ctx, s.cfg.URL); err != nil {
			return false, fmt.Sprintf("remote entropy service unreachable: %v", err)
		}
		return true, ""
	}
	body, err := s.get(ctx, s.cfg.QuotaURL)
	if err != nil {
		return false, fmt.Sprintf("remote entropy service unreachable: %v", err)
	}
	quota, err := strconv.ParseInt(strings.TrimSpace(body), 10, 64)
	if err != nil {
		return false, fmt.Sprintf("remote entropy quota response %q is not a number", strings.TrimSpace(body))
	}
	if quota <= 0 {
		return false, "remote entropy quota exhausted"
	}
	return true, ""
}

// #endregion air
