package item

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

type itemDocument struct {
	ID          string    `bson:"_id"`
	OwnerID     string    `bson:"owner_id"`
	Title       string    `bson:"title"`
	Description string    `bson:"description"`
	Image       string    `bson:"image"`
	CreatedAt   time.Time `bson:"created_at"`
}

// MongoRepository keeps item records in a MongoDB collection.
type MongoRepository struct {
	collection *mongo.Collection
	nowFunc    func() time.Time
}

// NewMongoRepository wraps the collection holding item documents.
func NewMongoRepository(collection *mongo.Collection) *MongoRepository {
	return &MongoRepository{collection: collection, nowFunc: time.Now}
}

// EnsureIndexes creates the owner/created_at index used by ListByOwner.
func (r *MongoRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	_, err := r.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "owner_id", Value: 1}, {Key: "created_at", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("create item index: %w", err)
	}
	return nil
}

// Create inserts a document with a fresh id.
func (r *MongoRepository) Create(ctx context.Context, it Item) (Item, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	it.ID = uuid.New()
	// BSON dates keep millisecond precision.
	it.CreatedAt = r.nowFunc().UTC().Truncate(time.Millisecond)

	if _, err := r.collection.InsertOne(ctx, toDocument(it)); err != nil {
		return Item{}, fmt.Errorf("create item: %w", err)
	}
	return it, nil
}

// ListByOwner returns every item of the owner, newest first.
func (r *MongoRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]Item, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.D{{Key: "owner_id", Value: ownerID.String()}}, opts)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}

	var docs []itemDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode items: %w", err)
	}

	items := make([]Item, 0, len(docs))
	for _, doc := range docs {
		it, err := doc.toItem()
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, nil
}

// Delete removes the owner's item by id.
func (r *MongoRepository) Delete(ctx context.Context, ownerID, itemID uuid.UUID) error {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	res, err := r.collection.DeleteOne(ctx, bson.D{
		{Key: "_id", Value: itemID.String()},
		{Key: "owner_id", Value: ownerID.String()},
	})
	if err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrItemNotFound
	}
	return nil
}

// Ping reports whether the database answers.
func (r *MongoRepository) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()
	return r.collection.Database().Client().Ping(ctx, nil)
}

func toDocument(it Item) itemDocument {
	return itemDocument{
		ID:          it.ID.String(),
		OwnerID:     it.OwnerID.String(),
		Title:       it.Title,
		Description: it.Description,
		Image:       it.Image,
		CreatedAt:   it.CreatedAt,
	}
}

func (d itemDocument) toItem() (Item, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return Item{}, fmt.Errorf("item document %q: %w", d.ID, err)
	}
	owner, err := uuid.Parse(d.OwnerID)
	if err != nil {
		return Item{}, fmt.Errorf("item document %q owner: %w", d.ID, err)
	}
	return Item{
		ID:          id,
		OwnerID:     owner,
		Title:       d.Title,
		Description: d.Description,
		Image:       d.Image,
		CreatedAt:   d.CreatedAt.UTC(),
	}, nil
}
