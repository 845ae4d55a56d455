package topicflux_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bft-labs/topicflux/pkg/topicflux"
)

// chanSource forwards records from ch until the context ends or ch closes.
type chanSource struct {
	ch chan topicflux.Record
}

func newChanSource(records ...topicflux.Record) *chanSource {
	ch := make(chan topicflux.Record, len(records)+16)
	for _, r := range records {
		ch <- r
	}
	return &chanSource{ch: ch}
}

func (s *chanSource) Start(ctx context.Context) (<-chan topicflux.Record, error) {
	out := make(chan topicflux.Record)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case r, ok := <-s.ch:
				if !ok {
					return
				}
				select {
				case out <- r:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

type memWriter struct {
	mu    sync.Mutex
	err   error
	lines []string
}

func (w *memWriter) Write(_ context.Context, lines []string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.lines = append(w.lines, lines...)
	return nil
}

func (w *memWriter) Lines() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.lines...)
}

type eventTracker struct {
	topicflux.BaseEventHandler
	mu      sync.Mutex
	states  []topicflux.State
	records int
}

func (e *eventTracker) OnStateChange(event topicflux.StateChangeEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.states = append(e.states, event.Current)
}

func (e *eventTracker) OnRecord(topicflux.RecordEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.records++
}

func (e *eventTracker) Records() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.records
}

func (e *eventTracker) States() []topicflux.State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]topicflux.State(nil), e.states...)
}

func testConfig() topicflux.Config {
	return topicflux.Config{
		InfluxURL: "http://localhost:8086",
		Database:  "telemetry",
	}
}

func rec(topic, payload string) topicflux.Record {
	return topicflux.Record{Timestamp: 1337, Topic: topic, Payload: []byte(payload)}
}

func TestNew_RequiresSource(t *testing.T) {
	_, err := topicflux.New(testConfig(), topicflux.WithWriter(&memWriter{}))
	assert.ErrorIs(t, err, topicflux.ErrInvalidConfig)
}

func TestNew_InvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  topicflux.Config
	}{
		{name: "org without bucket", cfg: topicflux.Config{Org: "acme"}},
		{name: "database and org", cfg: topicflux.Config{Database: "db", Org: "acme", Bucket: "b"}},
		{name: "negative amount", cfg: topicflux.Config{Database: "db", BufferAmount: -1}},
		{name: "bad scheme", cfg: topicflux.Config{InfluxURL: "ftp://host", Database: "db"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := topicflux.New(tt.cfg, topicflux.WithSource(newChanSource()))
			assert.ErrorIs(t, err, topicflux.ErrInvalidConfig)
		})
	}
}

func TestBridge_StartStopDrains(t *testing.T) {
	w := &memWriter{}
	events := &eventTracker{}
	b, err := topicflux.New(testConfig(),
		topicflux.WithSource(newChanSource(rec("foo/bar", `{"a":42,"b":{"c":666}}`))),
		topicflux.WithWriter(w),
		topicflux.WithEventHandler(events),
	)
	require.NoError(t, err)
	assert.Equal(t, topicflux.StateStopped, b.Status())

	require.NoError(t, b.Start(context.Background()))
	require.Eventually(t, func() bool { return events.Records() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, topicflux.StateRunning, b.Status())
	assert.Equal(t, 2, b.Pending())

	require.NoError(t, b.Stop())
	assert.Equal(t, topicflux.StateStopped, b.Status())
	assert.Equal(t, []string{
		"measurement,topic=foo/bar,topic1=foo,topic2=bar,topicE1=bar,topicE2=foo,topicSegments=2,key1=a,keySegments=1 value=42 1337",
		"measurement,topic=foo/bar,topic1=foo,topic2=bar,topicE1=bar,topicE2=foo,topicSegments=2,key1=b,key2=c,keySegments=2 value=666 1337",
	}, w.Lines())
	assert.Equal(t, 0, b.Pending())
	assert.Equal(t, []topicflux.State{
		topicflux.StateStarting,
		topicflux.StateRunning,
		topicflux.StateStopping,
		topicflux.StateStopped,
	}, events.States())
}

func TestBridge_StopReportsFailedDrain(t *testing.T) {
	w := &memWriter{err: errors.New("unreachable")}
	events := &eventTracker{}
	b, err := topicflux.New(testConfig(),
		topicflux.WithSource(newChanSource(rec("t", "1"))),
		topicflux.WithWriter(w),
		topicflux.WithEventHandler(events),
	)
	require.NoError(t, err)

	require.NoError(t, b.Start(context.Background()))
	require.Eventually(t, func() bool { return events.Records() == 1 }, time.Second, 5*time.Millisecond)

	err = b.Stop()
	assert.ErrorIs(t, err, topicflux.ErrDrainFailed)
	assert.Equal(t, topicflux.StateCrashed, b.Status())
	assert.Equal(t, 1, b.Pending())
}

// stuckSource delivers its records and never closes the channel, so a stop
// spends the whole drain timeout waiting for queued records.
type stuckSource struct {
	records []topicflux.Record
}

func (s stuckSource) Start(context.Context) (<-chan topicflux.Record, error) {
	ch := make(chan topicflux.Record, len(s.records))
	for _, r := range s.records {
		ch <- r
	}
	return ch, nil
}

// slowWriter takes delay per write unless ctx ends first.
type slowWriter struct {
	memWriter
	delay time.Duration
}

func (w *slowWriter) Write(ctx context.Context, lines []string) error {
	select {
	case <-time.After(w.delay):
	case <-ctx.Done():
		return ctx.Err()
	}
	return w.memWriter.Write(ctx, lines)
}

func TestBridge_StopWaitsForBothDrainPhases(t *testing.T) {
	cfg := testConfig()
	cfg.DrainTimeout = time.Second
	w := &slowWriter{delay: 600 * time.Millisecond}
	events := &eventTracker{}
	b, err := topicflux.New(cfg,
		topicflux.WithSource(stuckSource{records: []topicflux.Record{rec("t", "1")}}),
		topicflux.WithWriter(w),
		topicflux.WithEventHandler(events),
	)
	require.NoError(t, err)

	require.NoError(t, b.Start(context.Background()))
	require.Eventually(t, func() bool { return events.Records() == 1 }, time.Second, 5*time.Millisecond)

	start := time.Now()
	require.NoError(t, b.Stop())
	assert.Greater(t, time.Since(start), cfg.DrainTimeout)

	assert.Equal(t, topicflux.StateStopped, b.Status())
	assert.Equal(t, 0, b.Pending())
	assert.Len(t, w.Lines(), 1)
}

func TestBridge_StartTwice(t *testing.T) {
	b, err := topicflux.New(testConfig(),
		topicflux.WithSource(newChanSource()),
		topicflux.WithWriter(&memWriter{}),
	)
	require.NoError(t, err)

	assert.ErrorIs(t, b.Stop(), topicflux.ErrNotRunning)
	require.NoError(t, b.Start(context.Background()))
	assert.ErrorIs(t, b.Start(context.Background()), topicflux.ErrAlreadyRunning)
	require.NoError(t, b.Stop())

	// A stopped bridge can be started again.
	require.NoError(t, b.Start(context.Background()))
	require.NoError(t, b.Stop())
}

func TestBridge_SourceClosed(t *testing.T) {
	src := newChanSource(rec("t", "7"))
	close(src.ch)
	w := &memWriter{}

	b, err := topicflux.New(testConfig(), topicflux.WithSource(src), topicflux.WithWriter(w))
	require.NoError(t, err)
	require.NoError(t, b.Start(context.Background()))

	select {
	case <-b.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("bridge did not stop after the source closed")
	}

	assert.ErrorIs(t, b.Err(), topicflux.ErrSourceClosed)
	assert.Equal(t, topicflux.StateCrashed, b.Status())
	assert.Len(t, w.Lines(), 1)
}

func TestBridge_ParentContextCancel(t *testing.T) {
	w := &memWriter{}
	events := &eventTracker{}
	b, err := topicflux.New(testConfig(),
		topicflux.WithSource(newChanSource(rec("t", "on"))),
		topicflux.WithWriter(w),
		topicflux.WithEventHandler(events),
	)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, b.Start(ctx))
	require.Eventually(t, func() bool { return events.Records() == 1 }, time.Second, 5*time.Millisecond)
	cancel()

	<-b.Done()
	assert.NoError(t, b.Err())
	assert.Len(t, w.Lines(), 1)
	require.NoError(t, b.Stop())
}

func TestBridge_SetLimits(t *testing.T) {
	b, err := topicflux.New(testConfig(),
		topicflux.WithSource(newChanSource()),
		topicflux.WithWriter(&memWriter{}),
	)
	require.NoError(t, err)

	assert.Equal(t, topicflux.Limits{
		MaxAmount: topicflux.DefaultBufferAmount,
		MaxAge:    topicflux.DefaultBufferAge,
	}, b.Limits())

	require.NoError(t, b.SetLimits(topicflux.Limits{MaxAmount: 5, MaxAge: time.Second}))
	assert.Equal(t, topicflux.Limits{MaxAmount: 5, MaxAge: time.Second}, b.Limits())

	assert.ErrorIs(t, b.SetLimits(topicflux.Limits{MaxAmount: 0, MaxAge: time.Second}), topicflux.ErrInvalidConfig)
	assert.ErrorIs(t, b.SetLimits(topicflux.Limits{MaxAmount: 5}), topicflux.ErrInvalidConfig)
}

func TestBridge_FlushesAtAmount(t *testing.T) {
	w := &memWriter{}
	cfg := testConfig()
	cfg.BufferAmount = 3
	cfg.TickInterval = 5 * time.Millisecond

	b, err := topicflux.New(cfg,
		topicflux.WithSource(newChanSource(rec("a", "1"), rec("b", "2"), rec("c", "3"))),
		topicflux.WithWriter(w),
	)
	require.NoError(t, err)
	require.NoError(t, b.Start(context.Background()))

	require.Eventually(t, func() bool { return len(w.Lines()) == 3 }, time.Second, 5*time.Millisecond)
	require.NoError(t, b.Stop())
}

type limitsPlugin struct {
	topicflux.BasePlugin
	mu       sync.Mutex
	order    *[]string
	name     string
	shutdown bool
}

func (p *limitsPlugin) Name() string { return p.name }

func (p *limitsPlugin) Initialize(_ context.Context, cfg topicflux.PluginConfig) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	*p.order = append(*p.order, "init:"+p.name)
	return cfg.Limits.SetLimits(topicflux.Limits{MaxAmount: 7, MaxAge: time.Minute})
}

func (p *limitsPlugin) Shutdown(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	*p.order = append(*p.order, "shutdown:"+p.name)
	return nil
}

type panicPlugin struct {
	topicflux.BasePlugin
}

func (panicPlugin) Initialize(context.Context, topicflux.PluginConfig) error {
	panic("boom")
}

func TestBridge_Plugins(t *testing.T) {
	var order []string
	first := &limitsPlugin{name: "first", order: &order}
	second := &limitsPlugin{name: "second", order: &order}

	b, err := topicflux.New(testConfig(),
		topicflux.WithSource(newChanSource()),
		topicflux.WithWriter(&memWriter{}),
		topicflux.WithPlugin(first),
		topicflux.WithPlugin(second),
	)
	require.NoError(t, err)

	require.NoError(t, b.Start(context.Background()))
	assert.Equal(t, topicflux.Limits{MaxAmount: 7, MaxAge: time.Minute}, b.Limits())
	require.NoError(t, b.Stop())

	assert.Equal(t, []string{"init:first", "init:second", "shutdown:second", "shutdown:first"}, order)
}

func TestBridge_PluginPanic(t *testing.T) {
	b, err := topicflux.New(testConfig(),
		topicflux.WithSource(newChanSource()),
		topicflux.WithWriter(&memWriter{}),
		topicflux.WithPlugin(panicPlugin{}),
	)
	require.NoError(t, err)

	err = b.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panicked")
	assert.Equal(t, topicflux.StateCrashed, b.Status())
}

func TestBridge_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	events := &eventTracker{}
	b, err := topicflux.New(testConfig(),
		topicflux.WithSource(newChanSource(rec("a", "1"), rec("b", "not a number"))),
		topicflux.WithWriter(&memWriter{}),
		topicflux.WithEventHandler(events),
		topicflux.WithMetrics(reg),
	)
	require.NoError(t, err)
	defer b.Close()

	require.NoError(t, b.Start(context.Background()))
	require.Eventually(t, func() bool { return events.Records() == 2 }, time.Second, 5*time.Millisecond)
	require.NoError(t, b.Stop())

	assert.Equal(t, 2.0, counterValue(t, reg, "topicflux_records_total"))
	assert.Equal(t, 1.0, counterValue(t, reg, "topicflux_lines_flushed_total"))
}

func counterValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
		var sum float64
		for _, m := range f.GetMetric() {
			sum += m.GetCounter().GetValue()
		}
		return sum
	}
	t.Fatalf("metric %s not found", name)
	return 0
}

func TestBridge_InfluxEndToEnd(t *testing.T) {
	type request struct {
		uri  string
		auth string
		body string
	}
	var (
		mu       sync.Mutex
		requests []request
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		requests = append(requests, request{uri: r.URL.RequestURI(), auth: r.Header.Get("Authorization"), body: string(body)})
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	events := &eventTracker{}
	b, err := topicflux.New(topicflux.Config{
		InfluxURL: srv.URL,
		Org:       "acme",
		Bucket:    "sensors",
		Token:     "secret",
	},
		topicflux.WithSource(newChanSource(rec("home/temp", "21.5 °C"))),
		topicflux.WithHTTPClient(srv.Client()),
		topicflux.WithEventHandler(events),
	)
	require.NoError(t, err)

	require.NoError(t, b.Probe(context.Background()))
	require.NoError(t, b.Start(context.Background()))
	require.Eventually(t, func() bool { return events.Records() == 1 }, time.Second, 5*time.Millisecond)
	require.NoError(t, b.Stop())

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, requests, 2)
	assert.Equal(t, "", requests[0].body)
	assert.Equal(t, "/api/v2/write?bucket=sensors&org=acme", requests[1].uri)
	assert.Equal(t, "Token secret", requests[1].auth)
	assert.Equal(t,
		"measurement,topic=home/temp,topic1=home,topic2=temp,topicE1=temp,topicE2=home,topicSegments=2,keySegments=0 value=21.5 1337",
		requests[1].body)
}
