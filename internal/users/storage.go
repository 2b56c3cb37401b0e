package users

import (
	"context"
	"errors"
	"sync"
)

// ErrNotFound is returned when no user matches the given id.
var ErrNotFound = errors.New("user not found")

// Tx scopes a settlement so both credits land or neither does.
type Tx interface {
	Commit() error
	Rollback() error
}

// Storage is the interface for the users storage layer. GetForUpdate locks
// the row for the duration of the transaction so concurrent settlements
// serialize on the same seller.
type Storage interface {
	BeginTx(ctx context.Context) (Tx, error)
	GetForUpdate(ctx context.Context, tx Tx, id string) (*User, error)
	Credit(ctx context.Context, tx Tx, id string, amount float64) error
}

// LocalStorage provides an in-memory implementation for tests and
// storeless runs. Its transaction holds the storage lock from BeginTx
// until Commit or Rollback.
type LocalStorage struct {
	mu sync.Mutex
	m  map[string]*User
}

func NewLocalStorage() *LocalStorage {
	return &LocalStorage{m: map[string]*User{}}
}

// Put registers a user, replacing any existing record with the same id.
func (l *LocalStorage) Put(u *User) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.m[u.ID] = u
}

// Get returns a copy of the user, outside any transaction.
func (l *LocalStorage) Get(id string) (*User, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	u, ok := l.m[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *u
	return &copied, nil
}

type localTx struct {
	storage *LocalStorage
	done    bool
}

func (t *localTx) Commit() error {
	if !t.done {
		t.done = true
		t.storage.mu.Unlock()
	}
	return nil
}

func (t *localTx) Rollback() error {
	if !t.done {
		t.done = true
		t.storage.mu.Unlock()
	}
	return nil
}

func (l *LocalStorage) BeginTx(_ context.Context) (Tx, error) {
	l.mu.Lock()
	return &localTx{storage: l}, nil
}

func (l *LocalStorage) GetForUpdate(_ context.Context, _ Tx, id string) (*User, error) {
	u, ok := l.m[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *u
	return &copied, nil
}

func (l *LocalStorage) Credit(_ context.Context, _ Tx, id string, amount float64) error {
	u, ok := l.m[id]
	if !ok {
		return ErrNotFound
	}
	u.Balance += amount
	return nil
}
