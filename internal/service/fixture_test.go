package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/asadurzzaman/social-media-post-scheduling-tools/internal/models"
	"github.com/asadurzzaman/social-media-post-scheduling-tools/internal/platform"
	"github.com/asadurzzaman/social-media-post-scheduling-tools/internal/repository/memory"
	"github.com/asadurzzaman/social-media-post-scheduling-tools/pkg/utils"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

var testNow = time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC)

// fakeAdapter answers publish calls from a script of errors. Once the script
// is used up it succeeds.
type fakeAdapter struct {
	name    string
	mu      sync.Mutex
	script  []error
	always  error
	calls   int
	reqs    []*platform.PublishRequest
	delay   time.Duration
	release chan struct{}
	started chan struct{}

	inFlight    int
	maxInFlight int

	revokeScript []error
	revokes      int
}

func newFakeAdapter(name string) *fakeAdapter {
	return &fakeAdapter{name: name}
}

func (f *fakeAdapter) Platform() string { return f.name }

func (f *fakeAdapter) Publish(ctx context.Context, req *platform.PublishRequest) (*platform.Result, error) {
	f.mu.Lock()
	f.calls++
	call := f.calls
	f.reqs = append(f.reqs, req)
	f.inFlight++
	if f.inFlight > f.maxInFlight {
		f.maxInFlight = f.inFlight
	}
	var err error
	if f.always != nil {
		err = f.always
	} else if call <= len(f.script) {
		err = f.script[call-1]
	}
	release, started, delay := f.release, f.started, f.delay
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.inFlight--
		f.mu.Unlock()
	}()

	if started != nil {
		started <- struct{}{}
	}
	if release != nil {
		select {
		case <-release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if err != nil {
		return nil, err
	}
	return &platform.Result{ExternalID: "ext-" + req.PostID}, nil
}

func (f *fakeAdapter) Revoke(ctx context.Context, creds platform.Credentials) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revokes++
	if f.revokes <= len(f.revokeScript) {
		return f.revokeScript[f.revokes-1]
	}
	return nil
}

func (f *fakeAdapter) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type sleepLog struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *sleepLog) sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.delays = append(s.delays, d)
	s.mu.Unlock()
	return ctx.Err()
}

func (s *sleepLog) all() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.delays...)
}

type fixture struct {
	t        *testing.T
	store    *memory.Store
	adapter  *fakeAdapter
	registry *platform.Registry
	cipher   *utils.TokenCipher
	tokens   TokenService
	metrics  Metrics
	sleeps   *sleepLog
	dispatch DispatchService
}

func newFixture(t *testing.T, adapters ...platform.Adapter) *fixture {
	t.Helper()

	fake := newFakeAdapter(models.PlatformFacebook)
	if len(adapters) == 0 {
		adapters = []platform.Adapter{fake}
	}

	f := &fixture{
		t:        t,
		store:    memory.New(),
		adapter:  fake,
		registry: platform.NewRegistry(adapters...),
		cipher:   utils.NewTokenCipher(testSecret),
		metrics:  NewMetrics(prometheus.NewRegistry()),
		sleeps:   &sleepLog{},
	}
	f.tokens = NewTokenService(f.store.SocialAccounts(), func() time.Time { return testNow })
	f.dispatch = f.newDispatch(DispatchOptions{Timeout: time.Second})
	return f
}

func (f *fixture) newDispatch(opts DispatchOptions) DispatchService {
	if opts.Sleep == nil {
		opts.Sleep = f.sleeps.sleep
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return testNow }
	}
	return NewDispatchService(
		f.store.Posts(),
		f.store.SocialAccounts(),
		f.store.PostingHistory(),
		f.tokens,
		f.registry,
		f.cipher,
		f.metrics,
		opts,
	)
}

func (f *fixture) account(id, platformName string, mutate ...func(*models.SocialAccount)) *models.SocialAccount {
	f.t.Helper()

	token, err := f.cipher.Seal("plain-token-" + id)
	require.NoError(f.t, err)

	sa := &models.SocialAccount{
		ID:          id,
		UserID:      "user-1",
		Platform:    platformName,
		AccountID:   "page-" + id,
		AccountName: "Account " + id,
		AccessToken: token,
	}
	for _, m := range mutate {
		m(sa)
	}
	require.NoError(f.t, f.store.SocialAccounts().Create(context.Background(), sa))
	return sa
}

func (f *fixture) post(id, accountID string, mutate ...func(*models.Post)) *models.Post {
	f.t.Helper()

	p := &models.Post{
		ID:              id,
		UserID:          "user-1",
		SocialAccountID: accountID,
		PostType:        models.PostTypeText,
		Content:         "hello",
		ScheduledFor:    testNow.Add(-time.Second),
		Timezone:        "UTC",
		Status:          models.PostStatusScheduled,
	}
	for _, m := range mutate {
		m(p)
	}
	require.NoError(f.t, f.store.Posts().Create(context.Background(), p))
	return p
}

func (f *fixture) getPost(id string) *models.Post {
	f.t.Helper()
	p, err := f.store.Posts().GetByID(context.Background(), id)
	require.NoError(f.t, err)
	require.NotNil(f.t, p)
	return p
}

func (f *fixture) getAccount(id string) *models.SocialAccount {
	f.t.Helper()
	sa, err := f.store.SocialAccounts().GetByID(context.Background(), id)
	require.NoError(f.t, err)
	require.NotNil(f.t, sa)
	return sa
}
