package store

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/pkwy-game-suite/internal/engine"
	"github.com/DoyleJ11/pkwy-game-suite/internal/metrics"
)

// Writer persists session states off the actors' goroutines. Only the
// newest pending state per session is written; intermediate states that
// arrive during a write are coalesced.
type Writer struct {
	sessions Sessions
	log      *zap.Logger
	metrics  *metrics.Recorder
	now      func() time.Time

	mu      sync.Mutex
	pending map[string]*engine.State // nil entry means delete
	wake    chan struct{}
	done    chan struct{}
}

func NewWriter(sessions Sessions, log *zap.Logger, m *metrics.Recorder) *Writer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Writer{
		sessions: sessions,
		log:      log,
		metrics:  m,
		now:      time.Now,
		pending:  make(map[string]*engine.State),
		wake:     make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
}

func (w *Writer) Record(s engine.State) {
	w.mu.Lock()
	w.pending[s.ID] = &s
	w.mu.Unlock()
	w.signal()
}

func (w *Writer) Forget(id string) {
	w.mu.Lock()
	w.pending[id] = nil
	w.mu.Unlock()
	w.signal()
}

func (w *Writer) signal() {
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

// Run drains pending writes until ctx is cancelled, then flushes what is
// left with a fresh deadline.
func (w *Writer) Run(ctx context.Context) error {
	defer close(w.done)
	for {
		select {
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			w.Flush(flushCtx)
			return nil
		case <-w.wake:
			w.Flush(ctx)
		}
	}
}

// Done is closed once Run has returned.
func (w *Writer) Done() <-chan struct{} { return w.done }

func (w *Writer) Flush(ctx context.Context) {
	w.mu.Lock()
	batch := w.pending
	w.pending = make(map[string]*engine.State, len(batch))
	w.mu.Unlock()

	for id, s := range batch {
		if err := w.write(ctx, id, s); err != nil {
			w.metrics.StoreError()
			w.log.Error("persist session", zap.String("session_id", id), zap.Error(err))
		}
	}
}

func (w *Writer) write(ctx context.Context, id string, s *engine.State) error {
	if s == nil {
		return w.sessions.DeleteSession(ctx, id)
	}
	rec, err := NewSessionRecord(*s, w.now())
	if err != nil {
		return err
	}
	return w.sessions.SaveSession(ctx, rec)
}
