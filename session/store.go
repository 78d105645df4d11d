package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNotFound is returned by Load when nothing is persisted.
var ErrNotFound = errors.New("session not persisted")

// ErrCorrupt is returned when persisted entries cannot be decoded or only one
// of the two entries is present.
var ErrCorrupt = errors.New("persisted session corrupt")

// ErrStorageUnavailable wraps backend I/O failures.
var ErrStorageUnavailable = errors.New("session storage unavailable")

// Store persists a single session record. Save and Clear always act on both
// entries at once.
type Store interface {
	Load(ctx context.Context) (Record, error)
	Save(ctx context.Context, rec Record) error
	Clear(ctx context.Context) error
}

// entries is the two-entry persisted form shared by the backends.
type entries struct {
	Token []byte `json:"token"`
	User  []byte `json:"user"`
}

func encodeEntries(rec Record) (entries, error) {
	tok, err := EncodeToken(rec.Token, rec.ExpiresAt)
	if err != nil {
		return entries{}, err
	}
	user, err := json.Marshal(rec.User)
	if err != nil {
		return entries{}, err
	}
	return entries{Token: tok, User: user}, nil
}

func decodeEntries(e entries) (Record, error) {
	if len(e.Token) == 0 && len(e.User) == 0 {
		return Record{}, ErrNotFound
	}
	if len(e.Token) == 0 || len(e.User) == 0 {
		return Record{}, fmt.Errorf("%w: half-written session", ErrCorrupt)
	}

	tok, exp, err := DecodeToken(e.Token)
	if err != nil {
		return Record{}, err
	}

	var user User
	if err := json.Unmarshal(e.User, &user); err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	return Record{Token: tok, ExpiresAt: exp, User: user}, nil
}
