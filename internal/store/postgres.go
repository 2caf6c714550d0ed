package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

type Postgres struct {
	db *gorm.DB
}

func OpenPostgres(dsn string) (*Postgres, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	return NewPostgres(db)
}

// NewPostgres wraps an existing connection and migrates the schema.
func NewPostgres(db *gorm.DB) (*Postgres, error) {
	if err := db.AutoMigrate(&SessionRecord{}, &PackRecord{}); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Postgres{db: db}, nil
}

func (p *Postgres) SaveSession(ctx context.Context, rec SessionRecord) error {
	return p.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&rec).Error
}

func (p *Postgres) DeleteSession(ctx context.Context, id string) error {
	return p.db.WithContext(ctx).Delete(&SessionRecord{}, "id = ?", id).Error
}

func (p *Postgres) LoadSessions(ctx context.Context) ([]SessionRecord, error) {
	var recs []SessionRecord
	err := p.db.WithContext(ctx).Order("created_at").Find(&recs).Error
	return recs, err
}

func (p *Postgres) SavePack(ctx context.Context, rec PackRecord) error {
	return p.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&rec).Error
}

func (p *Postgres) GetPack(ctx context.Context, id string) (PackRecord, error) {
	var rec PackRecord
	err := p.db.WithContext(ctx).First(&rec, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return PackRecord{}, ErrNotFound
	}
	return rec, err
}

// ListPacks filters format in SQL and tags in Go; packs are few and the
// tag column is a plain JSON array.
func (p *Postgres) ListPacks(ctx context.Context, f PackFilter) ([]PackRecord, error) {
	q := p.db.WithContext(ctx).Order("created_at DESC")
	if f.Format != "" {
		q = q.Where("UPPER(format) = UPPER(?)", f.Format)
	}
	var recs []PackRecord
	if err := q.Find(&recs).Error; err != nil {
		return nil, err
	}
	out := recs[:0]
	for _, r := range recs {
		if f.match(r) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (p *Postgres) DeletePack(ctx context.Context, id string) error {
	res := p.db.WithContext(ctx).Delete(&PackRecord{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
