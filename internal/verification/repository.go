package verification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/threespace/site-backend/internal/apperr"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Repository persists verification records.
//
// Consume marks the record consumed at now and returns it. It must be a
// single atomic step in the store: of several concurrent calls for the same
// jti at most one succeeds, the others see apperr.ErrTokenUsed. Failures are
// reported in the order not found, already used, expired.
type Repository interface {
	Create(ctx context.Context, r *Record) error
	Get(ctx context.Context, jti string) (*Record, error)
	Consume(ctx context.Context, jti string, now time.Time) (*Record, error)
	// Purge deletes records whose PurgeAt is before the given time.
	Purge(ctx context.Context, before time.Time) (int64, error)
}

// MongoRepository implements Repository using a Mongo collection
type MongoRepository struct {
	col *mongo.Collection
}

func NewMongoRepository(col *mongo.Collection) *MongoRepository {
	return &MongoRepository{col: col}
}

// EnsureIndexes creates the TTL index that lets Mongo drop purgeable records.
func (r *MongoRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "purgeAt", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(0).SetName("purgeAt_ttl"),
	})
	if err != nil {
		return apperr.Persistence("verification indexes", err)
	}
	return nil
}

func (r *MongoRepository) Create(ctx context.Context, rec *Record) error {
	if _, err := r.col.InsertOne(ctx, rec); err != nil {
		return apperr.Persistence("insert verification", err)
	}
	return nil
}

func (r *MongoRepository) Get(ctx context.Context, jti string) (*Record, error) {
	var rec Record
	err := r.col.FindOne(ctx, bson.M{"_id": jti}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperr.ErrTokenNotFound
	}
	if err != nil {
		return nil, apperr.Persistence("find verification", err)
	}
	return &rec, nil
}

func (r *MongoRepository) Consume(ctx context.Context, jti string, now time.Time) (*Record, error) {
	filter := bson.M{
		"_id":        jti,
		"consumedAt": nil,
		"expiresAt":  bson.M{"$gt": now},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var rec Record
	err := r.col.FindOneAndUpdate(ctx, filter, bson.M{"$set": bson.M{"consumedAt": now}}, opts).Decode(&rec)
	if err == nil {
		return &rec, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperr.Persistence("consume verification", err)
	}
	// the conditional update matched nothing; find out why
	current, err := r.Get(ctx, jti)
	if err != nil {
		return nil, err
	}
	return nil, classify(current, now)
}

func (r *MongoRepository) Purge(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.col.DeleteMany(ctx, bson.M{"purgeAt": bson.M{"$lt": before}})
	if err != nil {
		return 0, apperr.Persistence("purge verification", err)
	}
	return res.DeletedCount, nil
}

// classify explains why rec cannot be consumed at now.
func classify(rec *Record, now time.Time) error {
	switch {
	case rec.Consumed():
		return apperr.ErrTokenUsed
	case rec.Expired(now):
		return apperr.ErrTokenExpired
	}
	return fmt.Errorf("verification %s is consumable but was not consumed", rec.JTI)
}
