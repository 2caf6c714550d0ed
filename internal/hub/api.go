package hub

import (
	"context"
	"errors"

	"github.com/DoyleJ11/pkwy-game-suite/internal/engine"
	"github.com/DoyleJ11/pkwy-game-suite/internal/session"
)

func (h *Hub) Create(ctx context.Context, m engine.Meta) (*session.Session, error) {
	reply := make(chan *session.Session, 1)
	if err := h.post(ctx, CreateSession{Meta: m, Reply: reply}); err != nil {
		return nil, err
	}
	s, err := wait(ctx, h, reply)
	if err == nil && s == nil {
		err = errors.New("could not allocate a join code")
	}
	return s, err
}

// Get resolves a join code (case-insensitive) or a session id.
func (h *Hub) Get(ctx context.Context, key string) (*session.Session, error) {
	reply := make(chan *session.Session, 1)
	if err := h.post(ctx, GetSession{Key: key, Reply: reply}); err != nil {
		return nil, err
	}
	s, err := wait(ctx, h, reply)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

func (h *Hub) List(ctx context.Context) ([]*session.Session, error) {
	reply := make(chan []*session.Session, 1)
	if err := h.post(ctx, ListSessions{Reply: reply}); err != nil {
		return nil, err
	}
	return wait(ctx, h, reply)
}

func (h *Hub) Remove(ctx context.Context, key string) error {
	reply := make(chan bool, 1)
	if err := h.post(ctx, RemoveSession{Key: key, Reply: reply}); err != nil {
		return err
	}
	ok, err := wait(ctx, h, reply)
	if err != nil {
		return err
	}
	if !ok {
		return ErrSessionNotFound
	}
	return nil
}

// Restore brings a persisted session back under an actor. A code already
// in use yields nil.
func (h *Hub) Restore(ctx context.Context, st engine.State) (*session.Session, error) {
	reply := make(chan *session.Session, 1)
	if err := h.post(ctx, RestoreSession{State: st, Reply: reply}); err != nil {
		return nil, err
	}
	return wait(ctx, h, reply)
}

// Close shuts every session down and waits for the hub to exit.
func (h *Hub) Close() {
	select {
	case h.inbox <- ShutdownHub{}:
	case <-h.done:
	}
	<-h.done
}

func (h *Hub) post(ctx context.Context, m HubMsg) error {
	select {
	case h.inbox <- m:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-h.done:
		return ErrHubClosed
	}
}

func wait[T any](ctx context.Context, h *Hub, reply chan T) (T, error) {
	var zero T
	select {
	case v := <-reply:
		return v, nil
	case <-ctx.Done():
		return zero, ctx.Err()
	case <-h.done:
		return zero, ErrHubClosed
	}
}
