package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alimflow/internal/message"
)

type fakeSync struct {
	mu       sync.Mutex
	pending  []message.PendingMessage
	results  map[uint64]message.ApprovalStatus
	failing  map[uint64]bool
	inFlight int
	peak     int
	listErr  error
}

func (f *fakeSync) GetPendingMessages(limit int) ([]message.PendingMessage, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.pending, nil
}

func (f *fakeSync) SyncStatus(ctx context.Context, p message.PendingMessage) (*message.StatusChange, error) {
	f.mu.Lock()
	f.inFlight++
	if f.inFlight > f.peak {
		f.peak = f.inFlight
	}
	f.mu.Unlock()
	defer func() {
		f.mu.Lock()
		f.inFlight--
		f.mu.Unlock()
	}()

	if f.failing[p.ID] {
		return nil, errors.New("platform timeout")
	}
	to, ok := f.results[p.ID]
	if !ok {
		return nil, nil
	}
	return &message.StatusChange{MessageID: p.ID, WorkspaceID: p.WorkspaceID, Title: p.Title, From: message.StatusPending, To: to}, nil
}

type fakeNotifier struct {
	mu      sync.Mutex
	changes []message.StatusChange
}

func (f *fakeNotifier) Notify(change message.StatusChange) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.changes = append(f.changes, change)
	return nil
}

func TestRunOnce(t *testing.T) {
	var pending []message.PendingMessage
	for id := uint64(1); id <= 10; id++ {
		pending = append(pending, message.PendingMessage{ID: id, WorkspaceID: 1, TemplateCode: "AF"})
	}
	fs := &fakeSync{
		pending: pending,
		results: map[uint64]message.ApprovalStatus{2: message.StatusApproved, 5: message.StatusRejected, 7: message.StatusApproved},
		failing: map[uint64]bool{3: true, 7: false},
	}
	notifier := &fakeNotifier{}
	s := NewScheduler(fs, notifier, 3)

	changed := s.RunOnce(context.Background())
	assert.Equal(t, 3, changed)
	assert.Len(t, notifier.changes, 3)
	assert.LessOrEqual(t, fs.peak, 3)
}

func TestRunOnceListError(t *testing.T) {
	s := NewScheduler(&fakeSync{listErr: errors.New("db down")}, &fakeNotifier{}, 2)
	assert.Equal(t, 0, s.RunOnce(context.Background()))
}

func TestRunOnceWithoutNotifier(t *testing.T) {
	fs := &fakeSync{
		pending: []message.PendingMessage{{ID: 1}},
		results: map[uint64]message.ApprovalStatus{1: message.StatusApproved},
	}
	s := NewScheduler(fs, nil, 0)
	assert.Equal(t, 1, s.RunOnce(context.Background()))
}

func TestStartStop(t *testing.T) {
	s := NewScheduler(&fakeSync{}, nil, 1)
	require.NoError(t, s.Start())
	assert.Len(t, s.cron.Entries(), 1)
	s.Stop()
}
