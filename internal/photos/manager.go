// Package photos maintains the ordered list of remote photo references
// attached to one inspection item, and pushes local files through the
// upload endpoints.
//
// Uploads for a single target are serialized through a queue: a second
// Attach while one is in flight waits its turn instead of racing the
// first for the visible list.
package photos

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Uploader is the slice of the API client the manager needs.
type Uploader interface {
	UploadPhoto(ctx context.Context, path string) (string, error)
	UploadPhotos(ctx context.Context, paths []string) ([]string, error)
}

// queueCapacity bounds pending upload batches per target.
const queueCapacity = 32

// Manager tracks remote photo references for one attachment target.
// The OnChange callback always receives the complete updated list, not
// a delta; callers must treat it as authoritative state.
type Manager struct {
	uploader Uploader
	logger   *zap.Logger

	mu       sync.Mutex
	refs     []string
	onChange func(refs []string)
	onError  func(err error)

	jobs   chan []string
	cancel context.CancelFunc
	done   chan struct{}
	closed bool
}

// NewManager starts a manager with its upload worker. onChange may be
// nil; it is invoked from the worker goroutine after every successful
// upload and after every removal.
func NewManager(uploader Uploader, onChange func([]string), logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		uploader: uploader,
		logger:   logger.Named("photos"),
		onChange: onChange,
		jobs:     make(chan []string, queueCapacity),
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	go m.run(ctx)
	return m
}

// OnError registers a callback for failed uploads. Failures never
// mutate the reference list.
func (m *Manager) OnError(fn func(error)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onError = fn
}

// Seed replaces the reference list, used when rehydrating a resumed
// response. Does not fire OnChange.
func (m *Manager) Seed(refs []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refs = append([]string(nil), refs...)
}

// Refs returns a copy of the current ordered reference list.
func (m *Manager) Refs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.refs...)
}

// Attach queues a batch of local files for upload. A single file goes
// through the single-file endpoint, several through the batch endpoint;
// either way the resulting references are appended in order.
func (m *Manager) Attach(paths []string) error {
	if len(paths) == 0 {
		return nil
	}
	// The closed check and the send stay under one lock so Close cannot
	// close the channel between them.
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return fmt.Errorf("photo manager is closed")
	}
	select {
	case m.jobs <- append([]string(nil), paths...):
		return nil
	default:
		return fmt.Errorf("too many pending photo uploads")
	}
}

// RemoveAt deletes the reference at position i from the local list and
// re-notifies. The remote file is left in place; orphaned uploads are
// accepted.
func (m *Manager) RemoveAt(i int) {
	m.mu.Lock()
	if i < 0 || i >= len(m.refs) {
		m.mu.Unlock()
		return
	}
	m.refs = append(m.refs[:i], m.refs[i+1:]...)
	refs := append([]string(nil), m.refs...)
	notify := m.onChange
	m.mu.Unlock()

	if notify != nil {
		notify(refs)
	}
}

// Close stops the worker. Queued uploads that have not started are
// dropped; an in-flight upload is cancelled.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	m.mu.Unlock()
	m.cancel()
	close(m.jobs)
	<-m.done
}

func (m *Manager) run(ctx context.Context) {
	defer close(m.done)
	for paths := range m.jobs {
		if ctx.Err() != nil {
			return
		}
		urls, err := m.upload(ctx, paths)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			m.logger.Warn("photo upload failed", zap.Int("count", len(paths)), zap.Error(err))
			m.mu.Lock()
			report := m.onError
			m.mu.Unlock()
			if report != nil {
				report(err)
			}
			continue
		}

		m.mu.Lock()
		m.refs = append(m.refs, urls...)
		refs := append([]string(nil), m.refs...)
		notify := m.onChange
		m.mu.Unlock()

		m.logger.Debug("photos attached", zap.Int("added", len(urls)), zap.Int("total", len(refs)))
		if notify != nil {
			notify(refs)
		}
	}
}

// upload normalizes the two endpoint shapes into a flat URL list.
func (m *Manager) upload(ctx context.Context, paths []string) ([]string, error) {
	if len(paths) == 1 {
		url, err := m.uploader.UploadPhoto(ctx, paths[0])
		if err != nil {
			return nil, err
		}
		return []string{url}, nil
	}
	return m.uploader.UploadPhotos(ctx, paths)
}
