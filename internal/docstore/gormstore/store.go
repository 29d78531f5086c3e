// Package gormstore persists documents in a single SQL table through GORM,
// for Postgres deployments and local SQLite files.
package gormstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/cartsync/internal/docstore"
	"github.com/angelmondragon/cartsync/pkg/db"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DefaultOwnerField is the document field promoted into the indexed owner_id column.
const DefaultOwnerField = "uid"

// Row mirrors the documents table created by the goose migrations.
type Row struct {
	ID         string    `gorm:"column:id;primaryKey"`
	Collection string    `gorm:"column:collection;not null;index:idx_documents_collection_owner"`
	OwnerID    string    `gorm:"column:owner_id;not null;default:'';index:idx_documents_collection_owner"`
	Fields     string    `gorm:"column:fields;not null"`
	CreatedAt  time.Time `gorm:"column:created_at"`
	UpdatedAt  time.Time `gorm:"column:updated_at"`
}

func (Row) TableName() string { return "documents" }

// Store implements docstore.Store on top of pkg/db.
type Store struct {
	client     *db.Client
	ownerField string
}

func New(client *db.Client, ownerField string) (*Store, error) {
	if client == nil {
		return nil, fmt.Errorf("db client is required")
	}
	if ownerField == "" {
		ownerField = DefaultOwnerField
	}
	return &Store{client: client, ownerField: ownerField}, nil
}

func (s *Store) Query(ctx context.Context, collection string, filters ...docstore.Filter) ([]docstore.Document, error) {
	q := s.client.DB().WithContext(ctx).Where("collection = ?", collection)
	rest := make([]docstore.Filter, 0, len(filters))
	for _, f := range filters {
		if owner, ok := f.Value.(string); ok && f.Field == s.ownerField {
			q = q.Where("owner_id = ?", owner)
			continue
		}
		rest = append(rest, f)
	}

	var rows []Row
	if err := q.Order("created_at ASC").Order("id ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("query %s: %w", collection, err)
	}

	out := make([]docstore.Document, 0, len(rows))
	for _, row := range rows {
		fields, err := decodeFields(row.Fields)
		if err != nil {
			return nil, fmt.Errorf("decode %s/%s: %w", collection, row.ID, err)
		}
		if docstore.Match(fields, rest...) {
			out = append(out, docstore.Document{ID: row.ID, Fields: fields})
		}
	}
	return out, nil
}

func (s *Store) Create(ctx context.Context, collection string, fields docstore.Fields) (string, error) {
	encoded, err := json.Marshal(fields)
	if err != nil {
		return "", fmt.Errorf("encode fields: %w", err)
	}
	row := Row{
		ID:         uuid.NewString(),
		Collection: collection,
		OwnerID:    fields.String(s.ownerField),
		Fields:     string(encoded),
	}
	if err := s.client.DB().WithContext(ctx).Create(&row).Error; err != nil {
		return "", fmt.Errorf("create %s: %w", collection, err)
	}
	return row.ID, nil
}

func (s *Store) Update(ctx context.Context, collection, id string, fields docstore.Fields) error {
	return s.client.WithTx(ctx, func(tx *gorm.DB) error {
		var row Row
		err := tx.Where("collection = ? AND id = ?", collection, id).Take(&row).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return docstore.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("load %s/%s: %w", collection, id, err)
		}

		merged, err := decodeFields(row.Fields)
		if err != nil {
			return fmt.Errorf("decode %s/%s: %w", collection, id, err)
		}
		for k, v := range fields {
			merged[k] = v
		}
		encoded, err := json.Marshal(merged)
		if err != nil {
			return fmt.Errorf("encode fields: %w", err)
		}

		return tx.Model(&Row{}).
			Where("collection = ? AND id = ?", collection, id).
			Updates(map[string]any{
				"fields":     string(encoded),
				"owner_id":   merged.String(s.ownerField),
				"updated_at": time.Now().UTC(),
			}).Error
	})
}

func (s *Store) Delete(ctx context.Context, collection, id string) error {
	err := s.client.DB().WithContext(ctx).
		Where("collection = ? AND id = ?", collection, id).
		Delete(&Row{}).Error
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}
	return nil
}

func (s *Store) BatchDelete(ctx context.Context, collection string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return s.client.WithTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Where("collection = ? AND id IN ?", collection, ids).Delete(&Row{}).Error; err != nil {
			return fmt.Errorf("batch delete %s: %w", collection, err)
		}
		return nil
	})
}

func decodeFields(raw string) (docstore.Fields, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.UseNumber()
	fields := docstore.Fields{}
	if err := dec.Decode(&fields); err != nil {
		return nil, err
	}
	return fields, nil
}
