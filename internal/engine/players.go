package engine

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/DoyleJ11/pkwy-game-suite/pkg/types"
)

const maxNameLen = 20

func join(s State, cmd Command) ([]Event, State, error) {
	if s.Status != StatusWaiting && s.Status != StatusActive {
		return nil, s, invalid(s, "join")
	}
	if cmd.PlayerID == "" {
		return nil, s, fmt.Errorf("%w: player id required", ErrInvalidArgument)
	}
	name := strings.TrimSpace(cmd.Name)
	if n := utf8.RuneCountInString(name); n == 0 || n > maxNameLen {
		return nil, s, ErrInvalidName
	}
	for _, p := range s.Players {
		if p.ID == cmd.PlayerID {
			return nil, s, fmt.Errorf("%w: player id %s", ErrInvalidArgument, p.ID)
		}
		if strings.EqualFold(p.Name, name) {
			return nil, s, fmt.Errorf("%w: %q", ErrNameTaken, name)
		}
	}

	s.Players = append(s.Players, types.Player{
		ID:       cmd.PlayerID,
		Name:     name,
		JoinedAt: cmd.At,
	})
	return []Event{{Type: EvtPlayerJoined, To: ToDirector | ToTV, Data: types.PlayerJoined{
		PlayerID:     cmd.PlayerID,
		Name:         name,
		PlayersCount: len(s.Players),
	}}}, s, nil
}

func eliminate(s State, cmd Command) ([]Event, State, error) {
	p, err := s.player(cmd.PlayerID)
	if err != nil {
		return nil, s, err
	}
	if p.Eliminated {
		return nil, s, nil
	}
	p.Eliminated = true
	return []Event{
		{Type: EvtPlayerEliminated, To: ToAll, Data: types.PlayerEliminated{PlayerID: p.ID}},
		leaderboardEvent(s),
	}, s, nil
}

// adjustScore is the director's manual override; it bypasses the scored set.
// Deductions floor at zero.
func adjustScore(s State, cmd Command) ([]Event, State, error) {
	p, err := s.player(cmd.PlayerID)
	if err != nil {
		return nil, s, err
	}
	p.Score = max(p.Score+cmd.Points, 0)
	if cmd.Correct {
		p.CorrectAnswers++
	}
	return []Event{leaderboardEvent(s)}, s, nil
}

func presence(s State, cmd Command) ([]Event, State, error) {
	p, err := s.player(cmd.PlayerID)
	if err != nil {
		return nil, s, err
	}
	p.Connected = cmd.Connected
	return nil, s, nil
}

// player returns a pointer into s.Players; Apply works on a clone so the
// caller's state is never touched.
func (s *State) player(id string) (*types.Player, error) {
	for i := range s.Players {
		if s.Players[i].ID == id {
			return &s.Players[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrPlayerNotFound, id)
}

// remaining counts players still in the game.
func (s *State) remaining() int {
	n := 0
	for _, p := range s.Players {
		if !p.Eliminated {
			n++
		}
	}
	return n
}
