package casting

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielpatrickdp/hexagram-oracle/internal/faults"
)

// #region fake-service

type fakeService struct {
	calls  atomic.Int64
	status int
	body   func() string
	delay  time.Duration
	quota  string
	srv    *httptest.Server
}

func newFakeService(t *testing.T) *fakeService {
	t.Helper()
	f := &fakeService{
		status: http.StatusOK,
		body: func() string {
			return fmt.Sprintf("%d\n%d\n%d\n", 2+rand.IntN(2), 2+rand.IntN(2), 2+rand.IntN(2))
		},
		quota: "1000000",
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/integers/", func(w http.ResponseWriter, r *http.Request) {
		f.calls.Add(1)
		if f.delay > 0 {
			select {
			case <-time.After(f.delay):
			case <-r.Context().Done():
				return
			}
		}
		w.WriteHeader(f.status)
		fmt.Fprint(w, f.body())
	})
	mux.HandleFunc("/quota/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, f.quota)
	})
	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeService) config() RemoteConfig {
	return RemoteConfig{
		URL:            f.srv.URL + "/integers/?num=3&min=2&max=3&col=1&base=10&format=plain&rnd=new",
		QuotaURL:       f.srv.URL + "/quota/?format=plain",
		Timeout:        time.Second,
		BreakerTimeout: time.Minute,
		MaxFailures:    3,
	}
}

// #endregion fake-service

// #region cast-tests

func TestRemote_CastLine(t *testing.T) {
	f := newFakeService(t)
	f.body = func() string { return "3\n2\n3\n" }
	s := NewRemote(f.config(), nil)

	toss, err := s.CastLine(context.Background())
	require.NoError(t, err)
	assert.Equal(t, [3]int{3, 2, 3}, toss.Coins)
	assert.Equal(t, 8, int(toss.Value()))
	assert.True(t, s.RequiresExternalResource())
	assert.Equal(t, MethodAir, s.Method())
}

func TestRemote_ProbabilityLaw(t *testing.T) {
	f := newFakeService(t)
	assertLineLaw(t, NewRemote(f.config(), nil), 10000, 0.03)
}

func TestRemote_FailuresAreUnavailable(t *testing.T) {
	cases := map[string]func(f *fakeService){
		"server error": func(f *fakeService) { f.status = http.StatusServiceUnavailable },
		"wrong count":  func(f *fakeService) { f.body = func() string { return "2\n3\n" } },
		"not numbers":  func(f *fakeService) { f.body = func() string { return "a\nb\nc\n" } },
		"out of range": func(f *fakeService) { f.body = func() string { return "2\n4\n3\n" } },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			f := newFakeService(t)
			mutate(f)
			_, err := NewRemote(f.config(), nil).CastLine(context.Background())
			require.Error(t, err)
			assert.True(t, errors.Is(err, faults.ErrUnavailable), "got %v", err)
			assert.False(t, errors.Is(err, faults.ErrInvalidArgument))
		})
	}
}

func TestRemote_Timeout(t *testing.T) {
	f := newFakeService(t)
	f.delay = 2 * time.Second
	cfg := f.config()
	cfg.Timeout = 50 * time.Millisecond

	start := time.Now()
	_, err := NewRemote(cfg, nil).CastLine(context.Background())
	assert.True(t, errors.Is(err, faults.ErrUnavailable), "got %v", err)
	assert.Less(t, time.Since(start), time.Second, "the per-request timeout must bound the call")
}

func TestRemote_BreakerOpens(t *testing.T) {
	f := newFakeService(t)
	f.status = http.StatusInternalServerError
	s := NewRemote(f.config(), nil)

	for i := 0; i < 3; i++ {
		_, err := s.CastLine(context.Background())
		require.Error(t, err)
	}
	before := f.calls.Load()

	_, err := s.CastLine(context.Background())
	assert.True(t, errors.Is(err, faults.ErrUnavailable))
	assert.Contains(t, err.Error(), "circuit is open")
	assert.Equal(t, before, f.calls.Load(), "an open circuit must not reach the network")

	ok, reason := s.Available(context.Background())
	assert.False(t, ok)
	assert.Contains(t, reason, "circuit is open")
}

func TestRemote_CanceledDoesNotTrip(t *testing.T) {
	f := newFakeService(t)
	f.delay = time.Second
	s := NewRemote(f.config(), nil)

	for i := 0; i < 5; i++ {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := s.CastLine(ctx)
		assert.ErrorIs(t, err, context.Canceled)
		assert.False(t, errors.Is(err, faults.ErrUnavailable))
	}

	f.delay = 0
	_, err := s.CastLine(context.Background())
	assert.NoError(t, err)
}

// #endregion cast-tests

// #region availability-tests

func TestRemote_Available(t *testing.T) {
	f := newFakeService(t)
	s := NewRemote(f.config(), nil)

	ok, reason := s.Available(context.Background())
	assert.True(t, ok, reason)

	f.quota = "-40"
	ok, reason = s.Available(context.Background())
	assert.False(t, ok)
	assert.Contains(t, reason, "quota exhausted")

	f.quota = "lots"
	ok, _ = s.Available(context.Background())
	assert.False(t, ok)
}

func TestRemote_AvailableWithoutQuotaURL(t *testing.T) {
	f := newFakeService(t)
	cfg := f.config()
	cfg.QuotaURL = ""
	s := NewRemote(cfg, nil)

	ok, _ := s.Available(context.Background())
	assert.True(t, ok)

	f.status = http.StatusBadGateway
	ok, reason := s.Available(context.Background())
	assert.False(t, ok)
	assert.Contains(t, reason, "unreachable")
}

func TestRemote_UnreachableHost(t *testing.T) {
	f := newFakeService(t)
	cfg := f.config()
	f.srv.Close()

	s := NewRemote(cfg, nil)
	ok, reason := s.Available(context.Background())
	assert.False(t, ok)
	assert.NotEmpty(t, reason)

	_, err := s.CastLine(context.Background())
	assert.True(t, errors.Is(err, faults.ErrUnavailable))
}

// #endregion availability-tests
