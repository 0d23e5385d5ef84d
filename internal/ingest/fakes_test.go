package ingest

import (
	"context"
	"sync"

	"github.com/nerrad567/gray-logic-climate/internal/audit"
	"github.com/nerrad567/gray-logic-climate/internal/climate"
)

// fakeStore fails the first failures calls, then succeeds.
type fakeStore struct {
	mu       sync.Mutex
	failures int
	err      error
	calls    int
	saved    map[string][]byte
}

func (s *fakeStore) Save(_ context.Context, sys *climate.System, payload []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.calls <= s.failures {
		return "", s.err
	}
	if s.saved == nil {
		s.saved = make(map[string][]byte)
	}
	s.saved[sys.ID()] = payload
	return "snap-" + sys.ID(), nil
}

type fakePublisher struct {
	mu         sync.Mutex
	systems    []string
	rejections []Rejection
	err        error
}

func (p *fakePublisher) PublishSystem(_ context.Context, sys *climate.System) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.systems = append(p.systems, sys.ID())
	return p.err
}

func (p *fakePublisher) PublishRejection(_ context.Context, r Rejection) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rejections = append(p.rejections, r)
	return p.err
}

type fakeTelemetry struct {
	mu      sync.Mutex
	systems int
	series  []*climate.DeviceData
}

func (f *fakeTelemetry) WriteSystem(*climate.System) {
	f.mu.Lock()
	f.systems++
	f.mu.Unlock()
}

func (f *fakeTelemetry) WriteDeviceData(d *climate.DeviceData) {
	f.mu.Lock()
	f.series = append(f.series, d)
	f.mu.Unlock()
}

type fakeAuditor struct {
	mu      sync.Mutex
	entries []audit.Entry
	err     error
}

func (a *fakeAuditor) Create(_ context.Context, e *audit.Entry) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, *e)
	return a.err
}

func (a *fakeAuditor) last() audit.Entry {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.entries[len(a.entries)-1]
}
