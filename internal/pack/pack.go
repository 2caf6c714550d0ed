// Package pack imports and manages game packs: reusable question sets
// a host loads into a session.
package pack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/DoyleJ11/pkwy-game-suite/internal/content"
	"github.com/DoyleJ11/pkwy-game-suite/internal/store"
	"github.com/DoyleJ11/pkwy-game-suite/pkg/types"
)

var (
	ErrMalformedPack = fmt.Errorf("malformed pack: %w", content.ErrMalformedContent)
	ErrNotFound      = store.ErrNotFound
)

// Kind is the encoding of an uploaded pack body.
type Kind string

const (
	KindCSV  Kind = "csv"
	KindJSON Kind = "json"
)

// KindOf guesses the encoding from a filename, falling back to sniffing
// the first byte of the body.
func KindOf(filename string, body []byte) Kind {
	switch {
	case strings.HasSuffix(strings.ToLower(filename), ".csv"):
		return KindCSV
	case strings.HasSuffix(strings.ToLower(filename), ".json"):
		return KindJSON
	}
	if b := bytes.TrimSpace(body); len(b) > 0 && (b[0] == '{' || b[0] == '[') {
		return KindJSON
	}
	return KindCSV
}

// Meta describes a pack independent of its questions.
type Meta struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
}

type Service struct {
	packs store.Packs
	log   *zap.Logger
	now   func() time.Time
}

func NewService(packs store.Packs, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{packs: packs, log: log, now: time.Now}
}

// Parse decodes and validates a pack body without saving it.
func Parse(kind Kind, name string, body []byte) (content.Game, error) {
	var (
		g   content.Game
		err error
	)
	switch kind {
	case KindCSV:
		var rows []Row
		if rows, err = ParseCSV(bytes.NewReader(body)); err == nil {
			g, err = Build(name, rows)
		}
	default:
		g, err = ParseJSON(name, body)
	}
	if err != nil {
		return nil, err
	}
	if err := content.Validate(g); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedPack, err)
	}
	return g, nil
}

// Import parses body and stores it as a new pack.
func (s *Service) Import(ctx context.Context, m Meta, kind Kind, body []byte) (types.GamePack, error) {
	g, err := Parse(kind, m.Name, body)
	if err != nil {
		return types.GamePack{}, err
	}
	return s.Create(ctx, m, g)
}

// Create stores already-decoded game content as a new pack.
func (s *Service) Create(ctx context.Context, m Meta, g content.Game) (types.GamePack, error) {
	if err := content.Validate(g); err != nil {
		return types.GamePack{}, fmt.Errorf("%w: %w", ErrMalformedPack, err)
	}
	m.Name = strings.TrimSpace(m.Name)
	if m.Name == "" {
		m.Name = string(g.Format())
	}
	rec, err := record(uuid.NewString(), m, g, s.now())
	if err != nil {
		return types.GamePack{}, err
	}
	if err := s.packs.SavePack(ctx, rec); err != nil {
		return types.GamePack{}, fmt.Errorf("save pack: %w", err)
	}
	s.log.Info("pack saved",
		zap.String("pack_id", rec.ID),
		zap.String("format", rec.Format),
		zap.Int("questions", rec.TotalQuestions),
	)
	return wire(rec, true), nil
}

// Update replaces a pack's metadata, and its content when g is non-nil.
func (s *Service) Update(ctx context.Context, id string, m Meta, g content.Game) (types.GamePack, error) {
	old, err := s.packs.GetPack(ctx, id)
	if err != nil {
		return types.GamePack{}, err
	}
	if g == nil {
		if g, err = Content(old); err != nil {
			return types.GamePack{}, err
		}
	} else if err := content.Validate(g); err != nil {
		return types.GamePack{}, fmt.Errorf("%w: %w", ErrMalformedPack, err)
	}
	if strings.TrimSpace(m.Name) == "" {
		m.Name = old.Name
	}
	if m.Tags == nil {
		m.Tags = old.TagList()
	}
	rec, err := record(id, m, g, old.CreatedAt)
	if err != nil {
		return types.GamePack{}, err
	}
	if err := s.packs.SavePack(ctx, rec); err != nil {
		return types.GamePack{}, fmt.Errorf("save pack: %w", err)
	}
	return wire(rec, true), nil
}

// Duplicate copies a pack under a new id with " (Copy)" appended to its name.
func (s *Service) Duplicate(ctx context.Context, id string) (types.GamePack, error) {
	old, err := s.packs.GetPack(ctx, id)
	if err != nil {
		return types.GamePack{}, err
	}
	old.ID = uuid.NewString()
	old.Name += " (Copy)"
	old.CreatedAt = s.now()
	if err := s.packs.SavePack(ctx, old); err != nil {
		return types.GamePack{}, fmt.Errorf("save pack: %w", err)
	}
	return wire(old, true), nil
}

func (s *Service) Get(ctx context.Context, id string) (types.GamePack, error) {
	rec, err := s.packs.GetPack(ctx, id)
	if err != nil {
		return types.GamePack{}, err
	}
	return wire(rec, true), nil
}

// Game loads a pack's content ready for a session.
func (s *Service) Game(ctx context.Context, id string) (content.Game, error) {
	rec, err := s.packs.GetPack(ctx, id)
	if err != nil {
		return nil, err
	}
	return Content(rec)
}

// List returns summaries without content, newest first.
func (s *Service) List(ctx context.Context, f store.PackFilter) ([]types.GamePack, error) {
	recs, err := s.packs.ListPacks(ctx, f)
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(recs, func(a, b store.PackRecord) int { return b.CreatedAt.Compare(a.CreatedAt) })
	out := make([]types.GamePack, len(recs))
	for i, r := range recs {
		out[i] = wire(r, false)
	}
	return out, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.packs.DeletePack(ctx, id); err != nil {
		return err
	}
	s.log.Info("pack deleted", zap.String("pack_id", id))
	return nil
}

// Content decodes a stored pack's game.
func Content(rec store.PackRecord) (content.Game, error) {
	f, err := content.ParseFormat(rec.Format)
	if err != nil {
		return nil, err
	}
	return content.Decode(f, rec.Content)
}

func record(id string, m Meta, g content.Game, created time.Time) (store.PackRecord, error) {
	body, err := json.Marshal(g)
	if err != nil {
		return store.PackRecord{}, fmt.Errorf("encode pack: %w", err)
	}
	tags := make([]string, 0, len(m.Tags))
	for _, t := range m.Tags {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	rawTags, err := json.Marshal(tags)
	if err != nil {
		return store.PackRecord{}, fmt.Errorf("encode tags: %w", err)
	}
	return store.PackRecord{
		ID:             id,
		Name:           m.Name,
		Description:    strings.TrimSpace(m.Description),
		Format:         string(g.Format()),
		Tags:           datatypes.JSON(rawTags),
		Content:        datatypes.JSON(body),
		TotalQuestions: content.Total(g),
		CreatedAt:      created,
	}, nil
}

func wire(rec store.PackRecord, withContent bool) types.GamePack {
	p := types.GamePack{
		ID:             rec.ID,
		Name:           rec.Name,
		Description:    rec.Description,
		Format:         rec.Format,
		Tags:           rec.TagList(),
		TotalQuestions: rec.TotalQuestions,
		CreatedAt:      rec.CreatedAt,
	}
	if p.Tags == nil {
		p.Tags = []string{}
	}
	if withContent {
		p.Content = json.RawMessage(rec.Content)
	}
	return p
}
