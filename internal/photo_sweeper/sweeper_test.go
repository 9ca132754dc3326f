package photo_sweeper

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"panchayat-connect/internal/repository"
)

type fakeOrphans struct {
	due     []repository.OrphanedPhoto
	deleted []int64
	failed  map[int64]string
}

func (f *fakeOrphans) Record(context.Context, string, string) error { return nil }

func (f *fakeOrphans) ListDue(_ context.Context, maxAttempts, limit int) ([]repository.OrphanedPhoto, error) {
	var out []repository.OrphanedPhoto
	for _, p := range f.due {
		if p.Attempts < maxAttempts && len(out) < limit {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeOrphans) Delete(_ context.Context, id int64) error {
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeOrphans) MarkFailed(_ context.Context, id int64, reason string) error {
	if f.failed == nil {
		f.failed = map[int64]string{}
	}
	f.failed[id] = reason
	return nil
}

type fakeStore struct {
	broken map[string]bool
}

func (s *fakeStore) Delete(_ context.Context, objectName string) error {
	if s.broken[objectName] {
		return errors.New("access denied")
	}
	return nil
}

type fakeTokens struct{ calls int }

func (f *fakeTokens) PurgeExpiredTokens(context.Context, time.Time) (int64, error) {
	f.calls++
	return 2, nil
}

func TestSweepOnce(t *testing.T) {
	orphans := &fakeOrphans{due: []repository.OrphanedPhoto{
		{ID: 1, ObjectName: "TRK100001/a.jpg"},
		{ID: 2, ObjectName: "TRK100001/b.jpg"},
		{ID: 3, ObjectName: "TRK100002/c.jpg", Attempts: 10},
	}}
	store := &fakeStore{broken: map[string]bool{"TRK100001/b.jpg": true}}
	tokens := &fakeTokens{}

	s := NewSweeper(orphans, store, tokens, 60, 10, zap.NewNop())
	removed := s.SweepOnce(context.Background())

	assert.Equal(t, 1, removed)
	assert.Equal(t, []int64{1}, orphans.deleted)
	assert.Equal(t, map[int64]string{2: "access denied"}, orphans.failed)
	assert.Equal(t, 1, tokens.calls)
}

func TestRun_StopsOnCancel(t *testing.T) {
	orphans := &fakeOrphans{}
	s := NewSweeper(orphans, &fakeStore{}, nil, 3600, 10, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}
