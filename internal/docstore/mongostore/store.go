// Package mongostore adapts MongoDB collections to docstore.Store.
package mongostore

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/cartsync/internal/docstore"
	"github.com/angelmondragon/cartsync/pkg/config"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	client   *mongo.Client
	database *mongo.Database
}

// Connect dials MongoDB and verifies the connection.
func Connect(ctx context.Context, cfg config.MongoConfig) (*Store, error) {
	opts := options.Client().
		ApplyURI(cfg.URI).
		SetAppName("cartsync").
		SetMaxPoolSize(10).
		SetMaxConnIdleTime(30 * time.Second)
	if cfg.ConnectTimeout > 0 {
		opts.SetConnectTimeout(cfg.ConnectTimeout)
	}

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}
	return &Store{client: client, database: client.Database(cfg.Database)}, nil
}

// Ping checks the primary is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

func (s *Store) Close(ctx context.Context) error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Disconnect(ctx)
}

func (s *Store) Query(ctx context.Context, collection string, filters ...docstore.Filter) ([]docstore.Document, error) {
	cursor, err := s.database.Collection(collection).Find(ctx, filterDoc(filters), options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", collection, err)
	}
	var raw []bson.M
	if err := cursor.All(ctx, &raw); err != nil {
		return nil, fmt.Errorf("decode %s: %w", collection, err)
	}

	out := make([]docstore.Document, 0, len(raw))
	for _, m := range raw {
		out = append(out, toDocument(m))
	}
	return out, nil
}

func (s *Store) Create(ctx context.Context, collection string, fields docstore.Fields) (string, error) {
	doc := bson.M{}
	for k, v := range fields {
		doc[k] = v
	}
	id := primitive.NewObjectID()
	doc["_id"] = id
	if _, err := s.database.Collection(collection).InsertOne(ctx, doc); err != nil {
		return "", fmt.Errorf("create %s: %w", collection, err)
	}
	return id.Hex(), nil
}

func (s *Store) Update(ctx context.Context, collection, id string, fields docstore.Fields) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return docstore.ErrNotFound
	}
	res, err := s.database.Collection(collection).UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": bson.M(fields)})
	if err != nil {
		return fmt.Errorf("update %s/%s: %w", collection, id, err)
	}
	if res.MatchedCount == 0 {
		return docstore.ErrNotFound
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, collection, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil
	}
	if _, err := s.database.Collection(collection).DeleteOne(ctx, bson.M{"_id": oid}); err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}
	return nil
}

// BatchDelete runs inside a session transaction, which requires a replica set.
func (s *Store) BatchDelete(ctx context.Context, collection string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	oids, err := objectIDs(ids)
	if err != nil {
		return err
	}

	sess, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return s.database.Collection(collection).DeleteMany(sc, bson.M{"_id": bson.M{"$in": oids}})
	})
	if err != nil {
		return fmt.Errorf("batch delete %s: %w", collection, err)
	}
	return nil
}

func filterDoc(filters []docstore.Filter) bson.M {
	doc := bson.M{}
	for _, f := range docstore.Normalize(filters) {
		doc[f.Field] = f.Value
	}
	return doc
}

func objectIDs(ids []string) ([]primitive.ObjectID, error) {
	out := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		oid, err := primitive.ObjectIDFromHex(id)
		if err != nil {
			return nil, fmt.Errorf("invalid document id %q: %w", id, err)
		}
		out = append(out, oid)
	}
	return out, nil
}

func toDocument(m bson.M) docstore.Document {
	doc := docstore.Document{Fields: docstore.Fields{}}
	for k, v := range m {
		if k == "_id" {
			if oid, ok := v.(primitive.ObjectID); ok {
				doc.ID = oid.Hex()
			} else {
				doc.ID = fmt.Sprint(v)
			}
			continue
		}
		doc.Fields[k] = v
	}
	return doc
}
