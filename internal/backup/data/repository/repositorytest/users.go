// Package repositorytest provides an in-memory bot users repository for
// tests of code built on the repository package.
package repositorytest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ncobase/shopconsole/internal/backup/data/repository"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var _ repository.UserRepository = (*Users)(nil)

// Users is an in-memory repository.UserRepository ordered by joinedAt.
// FindHook and Err let tests steer a running export.
type Users struct {
	docs []bson.D
	mu   sync.RWMutex

	// FindHook runs after every page fetch, before the page is returned.
	FindHook func(skip int64, page []bson.Raw)
	// Err, when set, fails every call.
	Err error
}

// NewUsers creates an in-memory repository seeded with docs
func NewUsers(docs ...bson.D) *Users {
	r := &Users{}
	r.docs = append(r.docs, docs...)
	r.sort()
	return r
}

func (r *Users) sort() {
	sort.SliceStable(r.docs, func(i, j int) bool {
		return sortValue(r.docs[i]) < sortValue(r.docs[j])
	})
}

func sortValue(d bson.D) int64 {
	for _, e := range d {
		if e.Key != repository.SortKey {
			continue
		}
		switch v := e.Value.(type) {
		case int64:
			return v
		case int32:
			return int64(v)
		case int:
			return int64(v)
		case time.Time:
			return v.UnixNano()
		case float64:
			return int64(v)
		case primitive.DateTime:
			return int64(v)
		}
	}
	return 0
}

func (r *Users) Count(ctx context.Context) (int64, error) {
	if r.Err != nil {
		return 0, r.Err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.docs)), nil
}

func (r *Users) FindPage(ctx context.Context, skip, limit int64) ([]bson.Raw, error) {
	if r.Err != nil {
		return nil, r.Err
	}

	r.mu.RLock()
	var page []bson.Raw
	for i := skip; i < skip+limit && i < int64(len(r.docs)); i++ {
		var doc bson.D
		for _, e := range r.docs[i] {
			if e.Key != "_id" {
				doc = append(doc, e)
			}
		}
		raw, err := bson.Marshal(doc)
		if err != nil {
			r.mu.RUnlock()
			return nil, err
		}
		page = append(page, raw)
	}
	r.mu.RUnlock()

	if r.FindHook != nil {
		r.FindHook(skip, page)
	}
	return page, nil
}

func (r *Users) ReplaceAll(ctx context.Context, docs []any, _ bool) (int, error) {
	if r.Err != nil {
		return 0, r.Err
	}

	replaced := make([]bson.D, 0, len(docs))
	for _, d := range docs {
		raw, err := bson.Marshal(d)
		if err != nil {
			return 0, err
		}
		var doc bson.D
		if err := bson.Unmarshal(raw, &doc); err != nil {
			return 0, err
		}
		replaced = append(replaced, doc)
	}

	r.mu.Lock()
	r.docs = replaced
	r.sort()
	r.mu.Unlock()
	return len(docs), nil
}

// Docs returns a copy of the stored documents
func (r *Users) Docs() []bson.D {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]bson.D(nil), r.docs...)
}
