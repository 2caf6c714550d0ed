package ws

import (
	"fmt"

	"github.com/DoyleJ11/pkwy-game-suite/internal/engine"
	"github.com/DoyleJ11/pkwy-game-suite/internal/pack"
	"github.com/DoyleJ11/pkwy-game-suite/internal/session"
	"github.com/DoyleJ11/pkwy-game-suite/pkg/types"
)

const (
	EvtPing      = "ping"
	EvtHeartbeat = "heartbeat"
	EvtError     = "error"
)

// players may only answer and buzz; the TV is read-only.
var playerCommands = map[engine.CommandType]bool{
	engine.CmdSubmitAnswer: true,
	engine.CmdBuzz:         true,
}

// toEngineCommand translates a client envelope into an engine command on
// behalf of a connection with the given role.
func toEngineCommand(role session.Role, playerID string, env types.Envelope) (engine.Command, error) {
	t := engine.CommandType(env.Event)
	switch role {
	case session.RoleTV:
		return engine.Command{}, fmt.Errorf("%w: tv clients cannot send %q", engine.ErrUnsupportedCommand, env.Event)
	case session.RolePlayer:
		if !playerCommands[t] {
			return engine.Command{}, fmt.Errorf("%w: players cannot send %q", engine.ErrUnsupportedCommand, env.Event)
		}
	}

	cmd := engine.Command{Type: t}
	var err error
	switch t {
	case engine.CmdStart, engine.CmdPause, engine.CmdResume, engine.CmdFinish,
		engine.CmdNext, engine.CmdPrevious, engine.CmdShowLeaderboard,
		engine.CmdTimerStop, engine.CmdSurveyStrike:

	case engine.CmdGoto:
		var p types.GotoQuestion
		err = env.Decode(&p)
		cmd.Index = p.Index

	case engine.CmdReveal:
		var p types.RevealRequest
		err = env.Decode(&p)
		cmd.Reveal = p.Revealed

	case engine.CmdLoadContent:
		g, err := pack.Parse(pack.KindJSON, "", env.Data)
		if err != nil {
			return engine.Command{}, err
		}
		cmd.Content = g

	case engine.CmdEliminate:
		var p types.EliminateRequest
		err = env.Decode(&p)
		cmd.PlayerID = p.PlayerID

	case engine.CmdAdjustScore:
		var p types.ScoreAdjustment
		err = env.Decode(&p)
		cmd.PlayerID, cmd.Points, cmd.Correct = p.PlayerID, p.Points, p.CountsCorrect()

	case engine.CmdDisplay:
		var p types.DisplayState
		err = env.Decode(&p)
		cmd.Display = engine.Display(p.State)

	case engine.CmdTimerStart:
		var p types.TimerRequest
		err = env.Decode(&p)
		cmd.Seconds = p.Seconds

	case engine.CmdSurveyReveal:
		var p types.SurveyRevealRequest
		err = env.Decode(&p)
		cmd.Index = p.AnswerIndex

	case engine.CmdSubmitAnswer:
		var p types.SubmitAnswer
		err = env.Decode(&p)
		cmd.PlayerID = playerID
		cmd.Answer = p.Text()
		cmd.TimeTaken = p.TimeTaken
		cmd.Index = engine.CurrentQuestion
		if p.QuestionIndex != nil {
			cmd.Index = *p.QuestionIndex
		}

	case engine.CmdBuzz:
		cmd.PlayerID = playerID

	default:
		return engine.Command{}, fmt.Errorf("%w: %q", engine.ErrUnsupportedCommand, env.Event)
	}
	if err != nil {
		return engine.Command{}, fmt.Errorf("%w: %s: %v", engine.ErrInvalidArgument, env.Event, err)
	}
	return cmd, nil
}
