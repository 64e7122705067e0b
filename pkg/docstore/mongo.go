package docstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/matzehuels/stepgrid/pkg/document"
)

// MongoOptions configures a MongoStore.
type MongoOptions struct {
	URI        string
	Database   string // default "stepgrid"
	Collection string // default "documents"
}

// MongoStore keeps documents in a MongoDB collection. Each record carries
// the summary fields next to the serialized document, so List never decodes
// document bodies.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

type mongoRecord struct {
	Summary `bson:",inline"`
	Data    string `bson:"data"`
}

// NewMongoStore connects to MongoDB and verifies the connection.
func NewMongoStore(ctx context.Context, opts MongoOptions) (*MongoStore, error) {
	if opts.Database == "" {
		opts.Database = "stepgrid"
	}
	if opts.Collection == "" {
		opts.Collection = "documents"
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(opts.URI))
	if err != nil {
		return nil, fmt.Errorf("connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return &MongoStore{
		client: client,
		coll:   client.Database(opts.Database).Collection(opts.Collection),
	}, nil
}

// Get implements Store.
func (s *MongoStore) Get(ctx context.Context, id string) (*document.Document, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	var rec mongoRecord
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("find document: %w", err)
	}
	return document.ReadJSON(bytes.NewReader([]byte(rec.Data)))
}

// Put implements Store.
func (s *MongoStore) Put(ctx context.Context, d *document.Document) error {
	if err := checkID(d.ID); err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := document.WriteJSON(d, &buf); err != nil {
		return err
	}
	rec := mongoRecord{Summary: summarize(d), Data: buf.String()}
	_, err := s.coll.ReplaceOne(ctx, bson.M{"_id": d.ID}, rec, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("save document: %w", err)
	}
	return nil
}

// Delete implements Store.
func (s *MongoStore) Delete(ctx context.Context, id string) error {
	if err := checkID(id); err != nil {
		return err
	}
	if _, err := s.coll.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return nil
}

// List implements Store.
func (s *MongoStore) List(ctx context.Context) ([]Summary, error) {
	find := options.Find().
		SetProjection(bson.M{"data": 0}).
		SetSort(bson.D{{Key: "saved_at", Value: -1}, {Key: "_id", Value: 1}})
	cur, err := s.coll.Find(ctx, bson.M{}, find)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	var out []Summary
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode documents: %w", err)
	}
	return out, nil
}

// Close disconnects from MongoDB.
func (s *MongoStore) Close() error {
	return s.client.Disconnect(context.Background())
}

var _ Store = (*MongoStore)(nil)
