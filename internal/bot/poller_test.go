package bot

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"cardfill/internal/log"
	"cardfill/internal/telegram"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedSource struct {
	mu        sync.Mutex
	batches   [][]telegram.Update
	failFirst bool
	offsets   []int64
	deleted   bool
	cancel    context.CancelFunc
}

func (s *scriptedSource) DeleteWebhook(context.Context) error {
	s.deleted = true
	return nil
}

func (s *scriptedSource) GetUpdates(ctx context.Context, offset int64, _ time.Duration) ([]telegram.Update, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.offsets = append(s.offsets, offset)
	if s.failFirst {
		s.failFirst = false
		return nil, errors.New("bad gateway")
	}
	if len(s.batches) == 0 {
		s.cancel()
		return nil, ctx.Err()
	}
	next := s.batches[0]
	s.batches = s.batches[1:]
	return next, nil
}

func TestPollerRun(t *testing.T) {
	b, sender := newTestBot(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	u1 := textUpdate(groupChat, minorUser, "300 mcdonalds")
	u1.UpdateID = 41
	u2 := textUpdate(groupChat, majorUser, "900 rent")
	u2.UpdateID = 42
	src := &scriptedSource{
		batches:   [][]telegram.Update{{u1, u2}},
		failFirst: true,
		cancel:    cancel,
	}

	p := NewPoller(src, b, time.Second, log.New(log.Config{Output: io.Discard}))
	require.NoError(t, p.Run(ctx))

	assert.True(t, src.deleted)
	assert.Equal(t, []int64{0, 0, 43}, src.offsets)
	assert.Len(t, sender.sent, 2)
}
