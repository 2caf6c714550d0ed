package store

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"gorm.io/datatypes"

	"github.com/DoyleJ11/pkwy-game-suite/internal/content"
	"github.com/DoyleJ11/pkwy-game-suite/internal/engine"
	"github.com/DoyleJ11/pkwy-game-suite/pkg/types"
)

// SessionRecord is the durable form of a session. Per-question in-flight
// state (pending guesses, buzzer, timer) is not kept; a restored session
// resumes on the same question with a clean slate.
type SessionRecord struct {
	ID            string         `gorm:"primaryKey;size:36" json:"id"`
	Code          string         `gorm:"uniqueIndex;size:12;not null" json:"code"`
	Name          string         `json:"name"`
	Host          string         `json:"host"`
	Venue         string         `json:"venue"`
	Format        string         `gorm:"size:32;not null" json:"format"`
	Status        string         `gorm:"size:16;index;not null" json:"status"`
	QuestionIndex int            `json:"question_index"`
	Revealed      bool           `json:"revealed"`
	Display       string         `gorm:"size:16" json:"display"`
	Content       datatypes.JSON `gorm:"type:jsonb" json:"content,omitempty"`
	Players       datatypes.JSON `gorm:"type:jsonb" json:"players"`
	Scored        datatypes.JSON `gorm:"type:jsonb" json:"scored"`
	Visited       datatypes.JSON `gorm:"type:jsonb" json:"visited"`
	SpeedBonus    bool           `json:"speed_bonus"`
	TimeLimit     int            `json:"time_limit"`
	CreatedAt     time.Time      `json:"created_at"`
	StartedAt     *time.Time     `json:"started_at,omitempty"`
	FinishedAt    *time.Time     `json:"finished_at,omitempty"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

func (SessionRecord) TableName() string { return "game_sessions" }

func NewSessionRecord(s engine.State, now time.Time) (SessionRecord, error) {
	rec := SessionRecord{
		ID:            s.ID,
		Code:          s.Code,
		Name:          s.Name,
		Host:          s.Host,
		Venue:         s.Venue,
		Format:        string(s.Format),
		Status:        string(s.Status),
		QuestionIndex: s.QuestionIndex,
		Revealed:      s.Revealed,
		Display:       string(s.Display),
		SpeedBonus:    s.Rules.SpeedBonus,
		TimeLimit:     s.Rules.DefaultTimeLimit,
		CreatedAt:     s.CreatedAt,
		StartedAt:     optionalTime(s.StartedAt),
		FinishedAt:    optionalTime(s.FinishedAt),
		UpdatedAt:     now,
	}

	scored := make([]engine.AnswerKey, 0, len(s.Scored))
	for k := range s.Scored {
		scored = append(scored, k)
	}
	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Index != scored[j].Index {
			return scored[i].Index < scored[j].Index
		}
		return scored[i].PlayerID < scored[j].PlayerID
	})
	visited := make([]int, 0, len(s.Visited))
	for i := range s.Visited {
		visited = append(visited, i)
	}
	sort.Ints(visited)

	players := s.Players
	if players == nil {
		players = []types.Player{}
	}

	var err error
	if s.Content != nil {
		if rec.Content, err = marshal(s.Content); err != nil {
			return SessionRecord{}, fmt.Errorf("encode content: %w", err)
		}
	}
	if rec.Players, err = marshal(players); err != nil {
		return SessionRecord{}, err
	}
	if rec.Scored, err = marshal(scored); err != nil {
		return SessionRecord{}, err
	}
	if rec.Visited, err = marshal(visited); err != nil {
		return SessionRecord{}, err
	}
	return rec, nil
}

// State rebuilds the engine state. The round is re-derived from the index.
func (r SessionRecord) State() (engine.State, error) {
	format, err := content.ParseFormat(r.Format)
	if err != nil {
		return engine.State{}, err
	}
	s := engine.NewState(engine.Meta{
		ID: r.ID, Code: r.Code, Name: r.Name, Host: r.Host, Venue: r.Venue, Format: format,
	}, engine.Rules{SpeedBonus: r.SpeedBonus, DefaultTimeLimit: r.TimeLimit}, r.CreatedAt)

	if len(r.Content) > 0 && string(r.Content) != "null" {
		if s.Content, err = content.Decode(format, []byte(r.Content)); err != nil {
			return engine.State{}, err
		}
	}
	if err := unmarshal(r.Players, &s.Players); err != nil {
		return engine.State{}, fmt.Errorf("decode players: %w", err)
	}
	var scored []engine.AnswerKey
	if err := unmarshal(r.Scored, &scored); err != nil {
		return engine.State{}, fmt.Errorf("decode scored: %w", err)
	}
	for _, k := range scored {
		s.Scored[k] = true
	}
	var visited []int
	if err := unmarshal(r.Visited, &visited); err != nil {
		return engine.State{}, fmt.Errorf("decode visited: %w", err)
	}
	for _, i := range visited {
		s.Visited[i] = true
	}

	s.Status = engine.Status(r.Status)
	s.QuestionIndex = r.QuestionIndex
	if pos, ok := content.Locate(s.Content, r.QuestionIndex); ok {
		s.RoundIndex = pos.Round
	}
	s.Revealed = r.Revealed
	s.Display = engine.Display(r.Display)
	if r.StartedAt != nil {
		s.StartedAt = *r.StartedAt
	}
	if r.FinishedAt != nil {
		s.FinishedAt = *r.FinishedAt
	}
	return s, nil
}

type PackRecord struct {
	ID             string         `gorm:"primaryKey;size:36" json:"id"`
	Name           string         `gorm:"not null" json:"name"`
	Description    string         `json:"description"`
	Format         string         `gorm:"size:32;index;not null" json:"format"`
	Tags           datatypes.JSON `gorm:"type:jsonb" json:"tags"`
	Content        datatypes.JSON `gorm:"type:jsonb;not null" json:"content"`
	TotalQuestions int            `json:"total_questions"`
	CreatedAt      time.Time      `json:"created_at"`
}

func (PackRecord) TableName() string { return "game_packs" }

func (p PackRecord) TagList() []string {
	var tags []string
	_ = unmarshal(p.Tags, &tags)
	return tags
}

func marshal(v any) (datatypes.JSON, error) {
	b, err := json.Marshal(v)
	return datatypes.JSON(b), err
}

func unmarshal(raw datatypes.JSON, v any) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, v)
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
