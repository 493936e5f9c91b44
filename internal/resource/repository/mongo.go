package repository

import (
	"context"
	"errors"
	"time"

	"github.com/threespace/site-backend/internal/apperr"
	"github.com/threespace/site-backend/internal/resource"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoRepo stores one resource in a MongoDB collection keyed by ObjectID.
type MongoRepo struct {
	col  *mongo.Collection
	desc resource.Descriptor
}

func NewMongoRepo(col *mongo.Collection, desc resource.Descriptor) *MongoRepo {
	return &MongoRepo{col: col, desc: desc}
}

// EnsureIndexes creates the listing index and, for searchable resources,
// the text index. It is idempotent.
func (m *MongoRepo) EnsureIndexes(ctx context.Context) error {
	models := []mongo.IndexModel{
		{Keys: bson.D{{Key: m.desc.SortKey(), Value: -1}}},
	}
	if m.desc.Activatable {
		models = append(models, mongo.IndexModel{
			Keys: bson.D{{Key: resource.FieldActive, Value: 1}, {Key: m.desc.SortKey(), Value: -1}},
		})
	}
	if len(m.desc.TextFields) > 0 {
		keys := bson.D{}
		for _, f := range m.desc.TextFields {
			keys = append(keys, bson.E{Key: f, Value: "text"})
		}
		models = append(models, mongo.IndexModel{Keys: keys, Options: options.Index().SetName(m.desc.Collection + "_text")})
	}
	_, err := m.col.Indexes().CreateMany(ctx, models)
	return apperr.Persistence("ensure indexes", err)
}

func (m *MongoRepo) Insert(ctx context.Context, doc bson.M) (bson.M, error) {
	d := bson.M{}
	for k, v := range doc {
		d[k] = v
	}
	now := time.Now().UTC()
	d[resource.FieldID] = primitive.NewObjectID()
	d[resource.FieldCreatedAt] = now
	d[resource.FieldUpdatedAt] = now
	if _, err := m.col.InsertOne(ctx, d); err != nil {
		return nil, apperr.Persistence("insert", err)
	}
	return d, nil
}

func (m *MongoRepo) FindByID(ctx context.Context, id primitive.ObjectID) (bson.M, error) {
	var d bson.M
	err := m.col.FindOne(ctx, bson.M{resource.FieldID: id}).Decode(&d)
	if err != nil {
		return nil, mapErr("find", err)
	}
	return d, nil
}

func (m *MongoRepo) filter(q Query) bson.M {
	f := bson.M{}
	for k, v := range q.Equals {
		f[k] = v
	}
	if q.Search != "" && len(m.desc.TextFields) > 0 {
		f["$text"] = bson.M{"$search": q.Search}
	}
	return f
}

func (m *MongoRepo) Find(ctx context.Context, q Query) ([]bson.M, int64, error) {
	f := m.filter(q)
	total, err := m.col.CountDocuments(ctx, f)
	if err != nil {
		return nil, 0, apperr.Persistence("count", err)
	}
	opts := options.Find().
		SetSort(bson.D{{Key: m.desc.SortKey(), Value: -1}, {Key: resource.FieldID, Value: -1}}).
		SetSkip(q.Skip)
	if q.Limit > 0 {
		opts.SetLimit(q.Limit)
	}
	cur, err := m.col.Find(ctx, f, opts)
	if err != nil {
		return nil, 0, apperr.Persistence("find", err)
	}
	defer cur.Close(ctx)
	out := []bson.M{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, 0, apperr.Persistence("decode", err)
	}
	return out, total, nil
}

// UpdateByID asks the server for the pre-image; a plain $set makes the
// post-image the pre-image with s applied.
func (m *MongoRepo) UpdateByID(ctx context.Context, id primitive.ObjectID, set bson.M) (bson.M, bson.M, error) {
	s := bson.M{resource.FieldUpdatedAt: time.Now().UTC()}
	for k, v := range set {
		s[k] = v
	}
	var before bson.M
	err := m.col.FindOneAndUpdate(ctx,
		bson.M{resource.FieldID: id},
		bson.M{"$set": s},
		options.FindOneAndUpdate().SetReturnDocument(options.Before),
	).Decode(&before)
	if err != nil {
		return nil, nil, mapErr("update", err)
	}
	after := make(bson.M, len(before)+len(s))
	for k, v := range before {
		after[k] = v
	}
	for k, v := range s {
		after[k] = v
	}
	return before, after, nil
}

func (m *MongoRepo) DeleteByID(ctx context.Context, id primitive.ObjectID) (bson.M, error) {
	var d bson.M
	if err := m.col.FindOneAndDelete(ctx, bson.M{resource.FieldID: id}).Decode(&d); err != nil {
		return nil, mapErr("delete", err)
	}
	return d, nil
}

// ToggleByID uses an aggregation-pipeline update so the read of the current
// value and the write of its negation happen server side in one operation.
func (m *MongoRepo) ToggleByID(ctx context.Context, id primitive.ObjectID, field string) (bson.M, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$set", Value: bson.D{
			{Key: field, Value: bson.D{{Key: "$not", Value: bson.A{"$" + field}}}},
			{Key: resource.FieldUpdatedAt, Value: time.Now().UTC()},
		}}},
	}
	var d bson.M
	err := m.col.FindOneAndUpdate(ctx,
		bson.M{resource.FieldID: id},
		pipeline,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&d)
	if err != nil {
		return nil, mapErr("toggle", err)
	}
	return d, nil
}

func (m *MongoRepo) Count(ctx context.Context, equals bson.M) (int64, error) {
	if equals == nil {
		equals = bson.M{}
	}
	n, err := m.col.CountDocuments(ctx, equals)
	return n, apperr.Persistence("count", err)
}

func mapErr(op string, err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return apperr.ErrNotFound
	}
	return apperr.Persistence(op, err)
}
