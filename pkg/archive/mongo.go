package archive

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/chronictectonic/underworld2/pkg/httputil"
)

// Config selects the MongoDB collection holding the archive.
type Config struct {
	URI        string
	Database   string
	Collection string

	// Retry governs the initial ping. The zero value makes three attempts
	// starting at half a second.
	Retry httputil.Policy
}

// Open connects to MongoDB and pings the server.
func Open(ctx context.Context, cfg Config) (*Archive, error) {
	if cfg.URI == "" {
		return nil, fmt.Errorf("archive: no mongo uri configured")
	}
	if cfg.Database == "" {
		cfg.Database = "glucifer"
	}
	if cfg.Collection == "" {
		cfg.Collection = "figures"
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	policy := cfg.Retry
	if policy.Attempts == 0 {
		policy = httputil.Backoff(3, 500*time.Millisecond)
	}
	err = httputil.Retry(ctx, policy, func() error {
		if err := client.Ping(ctx, nil); err != nil {
			return &httputil.RetryableError{Err: err}
		}
		return nil
	})
	if err != nil {
		_ = client.Disconnect(context.WithoutCancel(ctx))
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return newArchive(&mongoCollection{
		client: client,
		coll:   client.Database(cfg.Database).Collection(cfg.Collection),
	}), nil
}

type mongoCollection struct {
	client *mongo.Client
	coll   *mongo.Collection
}

func (m *mongoCollection) put(ctx context.Context, rec record) error {
	_, err := m.coll.ReplaceOne(ctx, bson.M{"_id": rec.Name}, rec, options.Replace().SetUpsert(true))
	return err
}

func (m *mongoCollection) get(ctx context.Context, name string) (record, bool, error) {
	var rec record
	err := m.coll.FindOne(ctx, bson.M{"_id": name}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return record{}, false, nil
	}
	if err != nil {
		return record{}, false, err
	}
	return rec, true, nil
}

func (m *mongoCollection) names(ctx context.Context) ([]string, error) {
	opts := options.Find().SetProjection(bson.M{"_id": 1}).SetSort(bson.D{{Key: "_id", Value: 1}})
	cur, err := m.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var names []string
	for cur.Next(ctx) {
		var rec struct {
			Name string `bson:"_id"`
		}
		if err := cur.Decode(&rec); err != nil {
			return nil, err
		}
		names = append(names, rec.Name)
	}
	return names, cur.Err()
}

func (m *mongoCollection) remove(ctx context.Context, name string) error {
	_, err := m.coll.DeleteOne(ctx, bson.M{"_id": name})
	return err
}

func (m *mongoCollection) close(ctx context.Context) error { return m.client.Disconnect(ctx) }
