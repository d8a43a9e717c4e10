package repository

import (
	"context"
	"errors"
	"time"

	"github.com/ncobase/shopconsole/data/connection"
	"github.com/ncobase/shopconsole/data/metrics"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// SortKey orders bot users for stable pagination
const SortKey = "joinedAt"

// UserRepository reads and replaces the bot users collection
type UserRepository interface {
	Count(ctx context.Context) (int64, error)
	// FindPage returns up to limit documents after skip, ordered by SortKey
	// ascending, without their _id.
	FindPage(ctx context.Context, skip, limit int64) ([]bson.Raw, error)
	// ReplaceAll deletes every document then inserts docs. transactional
	// wraps both steps in one transaction.
	ReplaceAll(ctx context.Context, docs []any, transactional bool) (int, error)
}

type userRepository struct {
	mm        *connection.MongoManager
	read      *mongo.Collection
	write     *mongo.Collection
	collector metrics.Collector
}

// NewUserRepository creates a bot users repository. Reads are served by a
// read node chosen once so that every page of an export hits the same node.
func NewUserRepository(mm *connection.MongoManager, collection string, collector metrics.Collector) (UserRepository, error) {
	if mm == nil {
		return nil, errors.New("mongo manager is nil")
	}
	if collection == "" {
		return nil, errors.New("collection name is empty")
	}
	if collector == nil {
		collector = metrics.NoOpCollector{}
	}

	return &userRepository{
		mm:        mm,
		read:      mm.GetCollection(collection, true),
		write:     mm.GetCollection(collection, false),
		collector: collector,
	}, nil
}

func (r *userRepository) observe(op string, start time.Time, err error) {
	r.collector.MongoOperation(op, time.Since(start), err)
}

func (r *userRepository) Count(ctx context.Context) (n int64, err error) {
	defer func(start time.Time) { r.observe("count", start, err) }(time.Now())
	return r.read.CountDocuments(ctx, bson.D{})
}

// pageOptions sorts by SortKey ascending and drops _id
func pageOptions(skip, limit int64) *options.FindOptions {
	return options.Find().
		SetSort(bson.D{{Key: SortKey, Value: 1}}).
		SetProjection(bson.D{{Key: "_id", Value: 0}}).
		SetSkip(skip).
		SetLimit(limit)
}

func (r *userRepository) FindPage(ctx context.Context, skip, limit int64) (page []bson.Raw, err error) {
	defer func(start time.Time) { r.observe("find", start, err) }(time.Now())

	cursor, err := r.read.Find(ctx, bson.D{}, pageOptions(skip, limit))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	page = make([]bson.Raw, 0, limit)
	for cursor.Next(ctx) {
		doc := make(bson.Raw, len(cursor.Current))
		copy(doc, cursor.Current)
		page = append(page, doc)
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	return page, nil
}

func (r *userRepository) ReplaceAll(ctx context.Context, docs []any, transactional bool) (n int, err error) {
	defer func(start time.Time) { r.observe("replace_all", start, err) }(time.Now())

	replace := func(ctx context.Context) error {
		if _, err := r.write.DeleteMany(ctx, bson.D{}); err != nil {
			return err
		}
		if len(docs) == 0 {
			return nil
		}
		_, err := r.write.InsertMany(ctx, docs)
		return err
	}

	if transactional {
		err = r.mm.WithTransaction(ctx, func(sctx mongo.SessionContext) error {
			return replace(sctx)
		})
	} else {
		err = replace(ctx)
	}
	if err != nil {
		return 0, err
	}
	return len(docs), nil
}
