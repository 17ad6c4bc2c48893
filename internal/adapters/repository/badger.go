package repository

import (
	"context"
	"errors"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"
	json "github.com/goccy/go-json"

	"github.com/mlunde/adventpace/internal/domain/model"
)

// Key layout. The athlete index maps a Strava athlete id to the owning
// user id so webhook events resolve without a scan.
const (
	userPrefix    = "user/"
	athletePrefix = "athlete/"
	poolKey       = "config/pool"
	selPrefix     = "selection/"
)

const defaultConflictRetries = 8

// BadgerStore implements Store on a Badger key-value database. Badger
// transactions give the serializable read-modify-write the daily draw
// needs: two concurrent CommitDraw calls for a new day conflict, the
// loser retries and observes the winner's value.
type BadgerStore struct {
	db      *badger.DB
	retries int
}

// BadgerOption applies a configuration option to the BadgerStore.
type BadgerOption func(*BadgerStore, *badger.Options)

// WithInMemory keeps the database off disk. Used by tests.
func WithInMemory() BadgerOption {
	return func(_ *BadgerStore, o *badger.Options) {
		o.InMemory = true
		o.Dir = ""
		o.ValueDir = ""
	}
}

// WithConflictRetries bounds how often a conflicting transaction is
// retried before the error surfaces.
func WithConflictRetries(n int) BadgerOption {
	return func(s *BadgerStore, _ *badger.Options) {
		if n > 0 {
			s.retries = n
		}
	}
}

// NewBadgerStore opens (or creates) the database at dir.
func NewBadgerStore(dir string, opts ...BadgerOption) (*BadgerStore, error) {
	s := &BadgerStore{retries: defaultConflictRetries}
	bopts := badger.DefaultOptions(dir).WithLogger(nil)
	for _, opt := range opts {
		opt(s, &bopts)
	}
	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	s.db = db
	return s, nil
}

// update runs fn in a read-write transaction, retrying on conflicts.
func (s *BadgerStore) update(ctx context.Context, fn func(txn *badger.Txn) error) error {
	var err error
	for i := 0; i < s.retries; i++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		err = s.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
	}
	return err
}

func getJSON(txn *badger.Txn, key []byte, v any) error {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, v)
	})
}

func setJSON(txn *badger.Txn, key []byte, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return txn.Set(key, raw)
}

func (s *BadgerStore) GetUser(_ context.Context, id string) (model.User, error) {
	var u model.User
	err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, []byte(userPrefix+id), &u)
	})
	return u, err
}

func (s *BadgerStore) PutUser(ctx context.Context, u model.User) error {
	return s.update(ctx, func(txn *badger.Txn) error {
		if err := setJSON(txn, []byte(userPrefix+u.ID), u); err != nil {
			return err
		}
		if u.Credential != nil && u.Credential.AthleteID != 0 {
			return txn.Set(athleteKey(u.Credential.AthleteID), []byte(u.ID))
		}
		return nil
	})
}

func (s *BadgerStore) UpdateUser(ctx context.Context, id string, fn func(*model.User) error) error {
	return s.update(ctx, func(txn *badger.Txn) error {
		var u model.User
		if err := getJSON(txn, []byte(userPrefix+id), &u); err != nil {
			return err
		}
		if err := fn(&u); err != nil {
			return err
		}
		if err := setJSON(txn, []byte(userPrefix+id), u); err != nil {
			return err
		}
		if u.Credential != nil && u.Credential.AthleteID != 0 {
			return txn.Set(athleteKey(u.Credential.AthleteID), []byte(id))
		}
		return nil
	})
}

func (s *BadgerStore) UserByAthlete(ctx context.Context, athleteID int64) (model.User, error) {
	var u model.User
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(athleteKey(athleteID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		id, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		if err := getJSON(txn, append([]byte(userPrefix), id...), &u); err != nil {
			return err
		}
		// The index can go stale after a disconnect; trust the document.
		if u.Credential == nil || u.Credential.AthleteID != athleteID {
			return ErrNotFound
		}
		return nil
	})
	return u, err
}

func (s *BadgerStore) Users(_ context.Context) ([]model.User, error) {
	var out []model.User
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := []byte(userPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var u model.User
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &u)
			}); err != nil {
				return err
			}
			out = append(out, u)
		}
		return nil
	})
	return out, err
}

func (s *BadgerStore) InitPool(ctx context.Context, original []int) error {
	return s.update(ctx, func(txn *badger.Txn) error {
		var p Pool
		err := getJSON(txn, []byte(poolKey), &p)
		if err == nil && len(p.Original) > 0 {
			return nil
		}
		if err != nil && !errors.Is(err, ErrNotFound) {
			return err
		}
		p = Pool{
			Original:  append([]int(nil), original...),
			Remaining: append([]int(nil), original...),
		}
		return setJSON(txn, []byte(poolKey), p)
	})
}

func (s *BadgerStore) GetPool(_ context.Context) (Pool, error) {
	var p Pool
	err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, []byte(poolKey), &p)
	})
	return p, err
}

func (s *BadgerStore) Selection(_ context.Context, day string) (int, bool, error) {
	var km int
	found := false
	err := s.db.View(func(txn *badger.Txn) error {
		err := getJSON(txn, []byte(selPrefix+day), &km)
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		if err == nil {
			found = true
		}
		return err
	})
	return km, found, err
}

func (s *BadgerStore) CommitDraw(ctx context.Context, day string, km int, remaining []int) (int, error) {
	won := km
	err := s.update(ctx, func(txn *badger.Txn) error {
		var existing int
		err := getJSON(txn, []byte(selPrefix+day), &existing)
		if err == nil {
			won = existing
			return nil
		}
		if !errors.Is(err, ErrNotFound) {
			return err
		}
		won = km
		if err := setJSON(txn, []byte(selPrefix+day), km); err != nil {
			return err
		}
		if remaining == nil {
			return nil
		}
		var p Pool
		if err := getJSON(txn, []byte(poolKey), &p); err != nil {
			if errors.Is(err, ErrNotFound) {
				return nil
			}
			return err
		}
		p.Remaining = append([]int{}, remaining...)
		return setJSON(txn, []byte(poolKey), p)
	})
	if err != nil {
		return 0, err
	}
	return won, nil
}

func (s *BadgerStore) Standings(ctx context.Context, n int) ([]Standing, error) {
	users, err := s.Users(ctx)
	if err != nil {
		return nil, err
	}
	rows := make([]Standing, 0, len(users))
	for _, u := range users {
		rows = append(rows, Standing{
			UserID:      u.ID,
			DisplayName: u.DisplayName,
			TotalKm:     totalKm(u),
		})
	}
	return rankStandings(rows, n), nil
}

func (s *BadgerStore) Close() error {
	return s.db.Close()
}

func athleteKey(id int64) []byte {
	return []byte(fmt.Sprintf("%s%d", athletePrefix, id))
}
