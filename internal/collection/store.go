package collection

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/lithammer/fuzzysearch/fuzzy"

	"packets/internal/record"
)

// Store is the arena of collections. Views refer to collections and requests by
// id only; the store is the single owner.
type Store struct {
	collections []*Collection
}

func NewStore() *Store {
	return &Store{}
}

func (s *Store) Collections() []*Collection {
	return append([]*Collection{}, s.collections...)
}

func (s *Store) NewCollection(name string) (*Collection, error) {
	name, err := validName(name)
	if err != nil {
		return nil, err
	}
	c := New(name)
	s.collections = append(s.collections, c)
	return c, nil
}

// Add appends an already built collection, e.g. one restored from storage.
func (s *Store) Add(c *Collection) {
	s.collections = append(s.collections, c)
}

func (s *Store) Collection(id uuid.UUID) (*Collection, error) {
	for _, c := range s.collections {
		if c.ID == id {
			return c, nil
		}
	}
	return nil, fmt.Errorf("collection %s: %w", id, ErrCollectionNotFound)
}

func (s *Store) Rename(id uuid.UUID, name string) error {
	name, err := validName(name)
	if err != nil {
		return err
	}
	c, err := s.Collection(id)
	if err != nil {
		return err
	}
	c.Name = name
	return nil
}

// RemoveCollection deletes the collection and returns the ids of the requests
// it owned so open views can be closed.
func (s *Store) RemoveCollection(id uuid.UUID) ([]uuid.UUID, error) {
	for i, c := range s.collections {
		if c.ID != id {
			continue
		}
		ids := make([]uuid.UUID, 0, len(c.Requests))
		for _, r := range c.Requests {
			ids = append(ids, r.ID)
		}
		s.collections = append(s.collections[:i], s.collections[i+1:]...)
		return ids, nil
	}
	return nil, fmt.Errorf("remove collection %s: %w", id, ErrCollectionNotFound)
}

// Locate finds the collection owning the request.
func (s *Store) Locate(requestID uuid.UUID) (*Collection, *record.Record, error) {
	for _, c := range s.collections {
		if r, ok := c.Find(requestID); ok {
			return c, r, nil
		}
	}
	return nil, nil, fmt.Errorf("request %s: %w", requestID, ErrRequestNotFound)
}

type Match struct {
	CollectionID uuid.UUID `json:"collectionId"`
	RequestID    uuid.UUID `json:"requestId"`
	Name         string    `json:"name"`
	Distance     int       `json:"distance"`
}

// Search fuzzy-matches query against request names across all collections,
// closest first. An empty query matches everything in store order.
func (s *Store) Search(query string) []Match {
	var names []string
	var refs []Match
	for _, c := range s.collections {
		for _, r := range c.Requests {
			names = append(names, r.Name())
			refs = append(refs, Match{CollectionID: c.ID, RequestID: r.ID, Name: r.Name()})
		}
	}
	if query == "" {
		return refs
	}
	ranks := fuzzy.RankFindNormalizedFold(query, names)
	sort.Stable(ranks)
	out := make([]Match, 0, len(ranks))
	for _, rank := range ranks {
		m := refs[rank.OriginalIndex]
		m.Distance = rank.Distance
		out = append(out, m)
	}
	return out
}
