package repository

import (
	"context"
	"reflect"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/threespace/site-backend/internal/apperr"
	"github.com/threespace/site-backend/internal/resource"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemoryRepo is an in-memory repository used by the development server and
// unit tests.
type MemoryRepo struct {
	desc resource.Descriptor

	mu    sync.RWMutex
	seq   int64
	store map[primitive.ObjectID]*memEntry
}

type memEntry struct {
	seq int64
	doc bson.M
}

func NewMemoryRepo(desc resource.Descriptor) *MemoryRepo {
	return &MemoryRepo{desc: desc, store: make(map[primitive.ObjectID]*memEntry)}
}

func (m *MemoryRepo) Insert(_ context.Context, doc bson.M) (bson.M, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d := copyDoc(doc)
	id := primitive.NewObjectID()
	now := time.Now().UTC()
	d[resource.FieldID] = id
	d[resource.FieldCreatedAt] = now
	d[resource.FieldUpdatedAt] = now
	m.seq++
	m.store[id] = &memEntry{seq: m.seq, doc: d}
	return copyDoc(d), nil
}

func (m *MemoryRepo) FindByID(_ context.Context, id primitive.ObjectID) (bson.M, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.store[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return copyDoc(e.doc), nil
}

func (m *MemoryRepo) Find(_ context.Context, q Query) ([]bson.M, int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	matched := make([]*memEntry, 0, len(m.store))
	for _, e := range m.store {
		if matches(e.doc, q.Equals) && m.matchesText(e.doc, q.Search) {
			matched = append(matched, e)
		}
	}
	sortKey := m.desc.SortKey()
	sort.Slice(matched, func(i, j int) bool {
		ti, _ := matched[i].doc[sortKey].(time.Time)
		tj, _ := matched[j].doc[sortKey].(time.Time)
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return matched[i].seq > matched[j].seq
	})

	total := int64(len(matched))
	start := q.Skip
	if start > total {
		start = total
	}
	end := total
	if q.Limit > 0 && start+q.Limit < end {
		end = start + q.Limit
	}
	out := make([]bson.M, 0, end-start)
	for _, e := range matched[start:end] {
		out = append(out, copyDoc(e.doc))
	}
	return out, total, nil
}

func (m *MemoryRepo) UpdateByID(_ context.Context, id primitive.ObjectID, set bson.M) (bson.M, bson.M, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.store[id]
	if !ok {
		return nil, nil, apperr.ErrNotFound
	}
	before := copyDoc(e.doc)
	for k, v := range copyDoc(set) {
		e.doc[k] = v
	}
	e.doc[resource.FieldUpdatedAt] = time.Now().UTC()
	return before, copyDoc(e.doc), nil
}

func (m *MemoryRepo) DeleteByID(_ context.Context, id primitive.ObjectID) (bson.M, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.store[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	delete(m.store, id)
	return e.doc, nil
}

func (m *MemoryRepo) ToggleByID(_ context.Context, id primitive.ObjectID, field string) (bson.M, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.store[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	cur, _ := e.doc[field].(bool)
	e.doc[field] = !cur
	e.doc[resource.FieldUpdatedAt] = time.Now().UTC()
	return copyDoc(e.doc), nil
}

func (m *MemoryRepo) Count(_ context.Context, equals bson.M) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var n int64
	for _, e := range m.store {
		if matches(e.doc, equals) {
			n++
		}
	}
	return n, nil
}

func matches(doc, equals bson.M) bool {
	for k, want := range equals {
		if !reflect.DeepEqual(doc[k], want) {
			return false
		}
	}
	return true
}

// matchesText approximates a Mongo $text query: any search term found as a
// case-insensitive substring of any text field.
func (m *MemoryRepo) matchesText(doc bson.M, search string) bool {
	terms := strings.Fields(strings.ToLower(search))
	if len(terms) == 0 {
		return true
	}
	for _, f := range m.desc.TextFields {
		var values []string
		switch v := doc[f].(type) {
		case string:
			values = []string{v}
		case []string:
			values = v
		}
		for _, val := range values {
			lv := strings.ToLower(val)
			for _, t := range terms {
				if strings.Contains(lv, t) {
					return true
				}
			}
		}
	}
	return false
}

func copyDoc(in bson.M) bson.M {
	out := make(bson.M, len(in))
	for k, v := range in {
		if l, ok := v.([]string); ok {
			v = append([]string{}, l...)
		}
		out[k] = v
	}
	return out
}
