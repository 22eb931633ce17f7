package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pricewatch/crawler/internal/alert"
	"github.com/pricewatch/crawler/internal/fetcher"
	"github.com/pricewatch/crawler/internal/observability"
	"github.com/pricewatch/crawler/internal/parser"
	"github.com/pricewatch/crawler/internal/proxypool"
	"github.com/pricewatch/crawler/internal/rategate"
	"github.com/pricewatch/crawler/internal/types"
	"github.com/pricewatch/crawler/internal/uapool"
)

type fakeStore struct {
	mu          sync.Mutex
	targets     []types.TargetWithProduct
	jobUpdates  []jobUpdate
	obs         []types.PriceObservation
	latest      map[string]types.LatestPrice
	saveObsErr  error
}

type jobUpdate struct {
	targetID string
	status   types.JobStatus
	lastErr  string
}

func (f *fakeStore) ActiveTargets(ctx context.Context) ([]types.TargetWithProduct, error) {
	return f.targets, nil
}

func (f *fakeStore) UpdateJob(ctx context.Context, jobID string, status types.JobStatus, lastError string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobUpdates = append(f.jobUpdates, jobUpdate{targetID: jobID, status: status, lastErr: lastError})
	return nil
}

func (f *fakeStore) SavePriceObservation(ctx context.Context, obs types.PriceObservation) error {
	if f.saveObsErr != nil {
		return f.saveObsErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.obs = append(f.obs, obs)
	return nil
}

func (f *fakeStore) LatestPrice(ctx context.Context, targetID string) (types.LatestPrice, bool, error) {
	lp, ok := f.latest[targetID]
	return lp, ok, nil
}

type fakeFetcher struct {
	result *fetcher.Result
	err    error
	calls  int
}

func (f *fakeFetcher) Fetch(ctx context.Context, target string, opts fetcher.Options) (*fetcher.Result, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func (f *fakeFetcher) Close() error { return nil }

type fakeAlertStore struct {
	mu     sync.Mutex
	alerts []types.AlertType
}

func (f *fakeAlertStore) CreateAlert(ctx context.Context, productID string, alertType types.AlertType, payload map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.alerts = append(f.alerts, alertType)
	return nil
}

type fakeWebhook struct{}

func (fakeWebhook) Send(title, message string, color int) {}

func newLoop(t *testing.T, f fetcher.PageFetcher, store *fakeStore) (*Loop, *fakeAlertStore) {
	t.Helper()
	as := &fakeAlertStore{}
	sink := alert.NewSink(as, fakeWebhook{}, nil)
	t.Cleanup(sink.Close)

	l := New(
		store,
		f,
		parser.NewRegistry(),
		proxypool.New(nil, nil),
		uapool.New(""),
		rategate.NewInMemoryGate(),
		sink,
		observability.NewWorkerMetrics(),
		nil,
	)
	return l, as
}

const productHTML = `<html><body><div itemprop="price" content="499.00"></div></body></html>`
const captchaHTML = `<html><body>Please complete the reCAPTCHA to continue.</body></html>`

func TestProcessTarget_SuccessSavesObservationAndMarksSuccess(t *testing.T) {
	store := &fakeStore{latest: map[string]types.LatestPrice{}}
	f := &fakeFetcher{result: &fetcher.Result{HTML: productHTML, ResponseTime: 100 * time.Millisecond}}
	l, _ := newLoop(t, f, store)

	target := types.TargetWithProduct{Target: types.Target{ID: "t1", Domain: "example.com", URL: "http://example.com/p"}}
	l.processTarget(context.Background(), target)

	require.Len(t, store.obs, 1)
	assert.Equal(t, 499.0, store.obs[0].Price)
	require.Len(t, store.jobUpdates, 1)
	assert.Equal(t, types.JobSuccess, store.jobUpdates[0].status)
}

func TestProcessTarget_PriceDropBelowThresholdDispatchesAlert(t *testing.T) {
	store := &fakeStore{latest: map[string]types.LatestPrice{"t1": {Price: 1000}}}
	f := &fakeFetcher{result: &fetcher.Result{HTML: productHTML}}
	l, alerts := newLoop(t, f, store)

	target := types.TargetWithProduct{Target: types.Target{ID: "t1", Domain: "example.com", URL: "http://example.com/p"}}
	l.processTarget(context.Background(), target)

	require.Len(t, alerts.alerts, 1)
	assert.Equal(t, types.AlertPriceDrop, alerts.alerts[0])
}

func TestProcessTarget_CaptchaMarksJobCaptchaAndDispatchesAlert(t *testing.T) {
	store := &fakeStore{latest: map[string]types.LatestPrice{}}
	f := &fakeFetcher{result: &fetcher.Result{HTML: captchaHTML}}
	l, alerts := newLoop(t, f, store)

	target := types.TargetWithProduct{Target: types.Target{ID: "t1", Domain: "example.com", URL: "http://example.com/p"}}
	l.processTarget(context.Background(), target)

	require.Len(t, store.jobUpdates, 1)
	assert.Equal(t, types.JobCaptcha, store.jobUpdates[0].status)
	assert.Equal(t, types.AlertCaptchaEncounter, alerts.alerts[0])
	assert.Empty(t, store.obs)
}

func TestProcessTarget_ParseMissMarksJobFailed(t *testing.T) {
	store := &fakeStore{latest: map[string]types.LatestPrice{}}
	f := &fakeFetcher{result: &fetcher.Result{HTML: "<html><body>no price here</body></html>"}}
	l, _ := newLoop(t, f, store)

	target := types.TargetWithProduct{Target: types.Target{ID: "t1", Domain: "example.com", URL: "http://example.com/p"}}
	l.processTarget(context.Background(), target)

	require.Len(t, store.jobUpdates, 1)
	assert.Equal(t, types.JobFailed, store.jobUpdates[0].status)
	assert.Empty(t, store.obs)
}

func TestProcessTarget_FetchFailureExhaustsRetriesAndMarksFailed(t *testing.T) {
	store := &fakeStore{latest: map[string]types.LatestPrice{}}
	f := &fakeFetcher{err: errors.New("connection reset")}
	l, _ := newLoop(t, f, store)
	l.retryP.MaxAttempts = 2
	l.retryP.Base = time.Millisecond

	target := types.TargetWithProduct{Target: types.Target{ID: "t1", Domain: "example.com", URL: "http://example.com/p"}}
	l.processTarget(context.Background(), target)

	assert.Equal(t, 2, f.calls)
	require.Len(t, store.jobUpdates, 1)
	assert.Equal(t, types.JobFailed, store.jobUpdates[0].status)
}

func TestProcessTarget_RateGateWaitsBeforeFetching(t *testing.T) {
	store := &fakeStore{latest: map[string]types.LatestPrice{}}
	f := &fakeFetcher{result: &fetcher.Result{HTML: productHTML}}
	l, _ := newLoop(t, f, store)

	require.NoError(t, l.gate.Set(context.Background(), "example.com", 30*time.Millisecond))

	target := types.TargetWithProduct{Target: types.Target{ID: "t1", Domain: "example.com", URL: "http://example.com/p"}}
	start := time.Now()
	l.processTarget(context.Background(), target)
	assert.GreaterOrEqual(t, time.Since(start), 25*time.Millisecond)
}

func TestRun_StopsOnContextCancellation(t *testing.T) {
	store := &fakeStore{latest: map[string]types.LatestPrice{}}
	f := &fakeFetcher{result: &fetcher.Result{HTML: productHTML}}
	l, _ := newLoop(t, f, store)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		l.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker loop did not stop after context cancellation")
	}
}
