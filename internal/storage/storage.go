package storage

import (
	"errors"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"

	"packets/internal/types"
)

var (
	bucketApp     = []byte("app")
	bucketHistory = []byte("history")
)

// AppKey is the stable key the whole application state is stored under.
const AppKey = "packets.app"

const StateVersion = 1

var ErrNotFound = errors.New("not found")

// AppState is the persisted document. Only content is kept; pending exchanges,
// save flags and derived views are rebuilt at runtime.
type AppState struct {
	Version     int               `json:"version"`
	Collections []CollectionState `json:"collections"`
}

type CollectionState struct {
	ID           uuid.UUID                                 `json:"id"`
	Name         string                                    `json:"name"`
	Auth         map[types.AuthScheme]types.AuthCredential `json:"auth"`
	SelectedAuth types.AuthScheme                          `json:"selectedAuth"`
	Requests     []RequestState                            `json:"requests"`
}

type RequestState struct {
	ID   uuid.UUID         `json:"id"`
	Data types.RequestData `json:"data"`
}

type Store struct {
	db *bolt.DB
}

func New(path string) (*Store, error) {
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, err
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{bucketApp, bucketHistory} {
			if _, e := tx.CreateBucketIfNotExists(name); e != nil {
				return e
			}
		}
		return nil
	}); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) SaveState(st AppState) error {
	if st.Version == 0 {
		st.Version = StateVersion
	}
	raw, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketApp).Put([]byte(AppKey), raw)
	})
}

// LoadState returns the stored state, or an empty one when nothing was saved yet.
func (s *Store) LoadState() (AppState, error) {
	st := AppState{Version: StateVersion, Collections: []CollectionState{}}
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketApp).Get([]byte(AppKey))
		if v == nil {
			return nil
		}
		return json.Unmarshal(v, &st)
	})
	if err != nil {
		return AppState{}, fmt.Errorf("decode state: %w", err)
	}
	return st, nil
}

// Put stores a history entry. Ids are time-ordered so List walks newest first.
func (s *Store) Put(e *types.Entry) (string, error) {
	if e.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return "", err
		}
		e.ID = id.String()
	}
	raw, err := json.Marshal(e)
	if err != nil {
		return "", err
	}
	err = s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketHistory).Put([]byte(e.ID), raw)
	})
	return e.ID, err
}

func (s *Store) Get(id string) (*types.Entry, error) {
	var e types.Entry
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketHistory).Get([]byte(id))
		if v == nil {
			return fmt.Errorf("entry %s: %w", id, ErrNotFound)
		}
		return json.Unmarshal(v, &e)
	})
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (s *Store) List(limit int) ([]*types.Entry, error) {
	res := make([]*types.Entry, 0, max(limit, 0))
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketHistory).Cursor()
		for k, v := c.Last(); k != nil && len(res) < limit; k, v = c.Prev() {
			var e types.Entry
			if err := json.Unmarshal(v, &e); err != nil {
				return err
			}
			res = append(res, &e)
		}
		return nil
	})
	return res, err
}

func (s *Store) DeleteAll() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(bucketHistory); err != nil {
			return fmt.Errorf("delete bucket: %w", err)
		}
		_, err := tx.CreateBucket(bucketHistory)
		return err
	})
}
