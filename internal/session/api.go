package session

import (
	"context"

	"github.com/DoyleJ11/pkwy-game-suite/internal/engine"
	"github.com/DoyleJ11/pkwy-game-suite/pkg/types"
)

// Do runs cmd through the actor and waits for the outcome.
func (s *Session) Do(ctx context.Context, cmd engine.Command) (Result, error) {
	reply := make(chan Result, 1)
	if err := s.post(ctx, Command{Cmd: cmd, Reply: reply}); err != nil {
		return Result{}, err
	}
	select {
	case res := <-reply:
		return res, res.Err
	case <-ctx.Done():
		return Result{}, ctx.Err()
	case <-s.done:
		return Result{}, ErrClosed
	}
}

func (s *Session) State(ctx context.Context) (engine.State, error) {
	reply := make(chan engine.State, 1)
	if err := s.post(ctx, GetState{Reply: reply}); err != nil {
		return engine.State{}, err
	}
	select {
	case st := <-reply:
		return st, nil
	case <-ctx.Done():
		return engine.State{}, ctx.Err()
	case <-s.done:
		return engine.State{}, ErrClosed
	}
}

func (s *Session) View(ctx context.Context, role Role) (types.Session, error) {
	st, err := s.State(ctx)
	if err != nil {
		return types.Session{}, err
	}
	return engine.View(st, role.Audience()), nil
}

// Attach registers a client. The first envelope on outbox is always the
// session:state snapshot.
func (s *Session) Attach(ctx context.Context, clientID string, role Role, playerID string, outbox chan types.Envelope) error {
	reply := make(chan error, 1)
	if err := s.post(ctx, Join{ClientID: clientID, Role: role, PlayerID: playerID, Outbox: outbox, Reply: reply}); err != nil {
		return err
	}
	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-s.done:
		return ErrClosed
	}
}

func (s *Session) Detach(clientID string) {
	select {
	case s.inbox <- Leave{ClientID: clientID}:
	case <-s.done:
	}
}

// Close stops the actor and waits for it to exit.
func (s *Session) Close() {
	select {
	case s.inbox <- Shutdown{}:
	case <-s.done:
	}
	<-s.done
}

func (s *Session) post(ctx context.Context, m Msg) error {
	select {
	case s.inbox <- m:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-s.done:
		return ErrClosed
	}
}
