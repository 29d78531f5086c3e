// Package firestore adapts Cloud Firestore collections to docstore.Store.
package firestore

import (
	"context"
	"errors"
	"fmt"
	"sort"

	gfs "cloud.google.com/go/firestore"
	"github.com/angelmondragon/cartsync/internal/docstore"
	"github.com/angelmondragon/cartsync/pkg/config"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// maxTransactionWrites is the Firestore limit on writes in one transaction.
const maxTransactionWrites = 500

var ErrBatchTooLarge = errors.New("batch exceeds firestore transaction write limit")

type Store struct {
	client *gfs.Client
}

// Connect opens a Firestore client for the configured project. An empty
// credentials file falls back to application default credentials.
func Connect(ctx context.Context, cfg config.FirestoreConfig) (*Store, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	client, err := gfs.NewClient(ctx, cfg.ProjectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("create firestore client: %w", err)
	}
	return &Store{client: client}, nil
}

func New(client *gfs.Client) *Store {
	return &Store{client: client}
}

func (s *Store) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}

func (s *Store) Query(ctx context.Context, collection string, filters ...docstore.Filter) ([]docstore.Document, error) {
	q := s.client.Collection(collection).Query
	for _, f := range docstore.Normalize(filters) {
		q = q.Where(f.Field, "==", f.Value)
	}

	it := q.Documents(ctx)
	defer it.Stop()

	var out []docstore.Document
	for {
		snap, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("query %s: %w", collection, err)
		}
		out = append(out, docstore.Document{ID: snap.Ref.ID, Fields: docstore.Fields(snap.Data())})
	}
	return out, nil
}

func (s *Store) Create(ctx context.Context, collection string, fields docstore.Fields) (string, error) {
	ref, _, err := s.client.Collection(collection).Add(ctx, map[string]any(fields))
	if err != nil {
		return "", fmt.Errorf("create %s: %w", collection, err)
	}
	return ref.ID, nil
}

func (s *Store) Update(ctx context.Context, collection, id string, fields docstore.Fields) error {
	_, err := s.client.Collection(collection).Doc(id).Update(ctx, updatesFor(fields))
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return docstore.ErrNotFound
		}
		return fmt.Errorf("update %s/%s: %w", collection, id, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, collection, id string) error {
	if _, err := s.client.Collection(collection).Doc(id).Delete(ctx); err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}
	return nil
}

// BatchDelete deletes ids inside one transaction so the batch commits or
// fails as a unit.
func (s *Store) BatchDelete(ctx context.Context, collection string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if len(ids) > maxTransactionWrites {
		return ErrBatchTooLarge
	}
	coll := s.client.Collection(collection)
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *gfs.Transaction) error {
		for _, id := range ids {
			if err := tx.Delete(coll.Doc(id)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("batch delete %s: %w", collection, err)
	}
	return nil
}

// updatesFor turns a field map into Firestore updates in a stable order.
func updatesFor(fields docstore.Fields) []gfs.Update {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	updates := make([]gfs.Update, 0, len(keys))
	for _, k := range keys {
		updates = append(updates, gfs.Update{FieldPath: gfs.FieldPath{k}, Value: fields[k]})
	}
	return updates
}
