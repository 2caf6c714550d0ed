// Package store persists session snapshots and game packs. Sessions are
// written behind the actors by Writer; packs are written synchronously.
package store

import (
	"context"
	"errors"
	"slices"
	"strings"
)

var ErrNotFound = errors.New("record not found")

type Sessions interface {
	SaveSession(ctx context.Context, rec SessionRecord) error
	DeleteSession(ctx context.Context, id string) error
	LoadSessions(ctx context.Context) ([]SessionRecord, error)
}

type Packs interface {
	SavePack(ctx context.Context, rec PackRecord) error
	GetPack(ctx context.Context, id string) (PackRecord, error)
	ListPacks(ctx context.Context, f PackFilter) ([]PackRecord, error)
	DeletePack(ctx context.Context, id string) error
}

type Store interface {
	Sessions
	Packs
	Close() error
}

type PackFilter struct {
	Format string
	Tag    string
}

func (f PackFilter) match(p PackRecord) bool {
	if f.Format != "" && !strings.EqualFold(f.Format, p.Format) {
		return false
	}
	if f.Tag != "" && !slices.ContainsFunc(p.TagList(), func(t string) bool { return strings.EqualFold(t, f.Tag) }) {
		return false
	}
	return true
}
