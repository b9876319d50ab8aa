package session

import (
	"github.com/google/uuid"
)

// Key identifies one session for its connection lifetime.
// Keys of distinct live sessions never collide.
type Key string

// NewKey returns a fresh random key.
func NewKey() Key {
	return Key(uuid.NewString())
}

// String returns the key as a string.
func (k Key) String() string {
	return string(k)
}

// ParseKey validates s as a key produced by NewKey.
func ParseKey(s string) (Key, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return "", InvalidKeyError{Value: s, Err: err}
	}
	return Key(id.String()), nil
}

// ErrStoreClosed is returned when operations are attempted on a closed store.
type ErrStoreClosed struct{}

func (e ErrStoreClosed) Error() string {
	return "session store is closed"
}

// ErrKeyExists is returned by Put when the key already has a value.
type ErrKeyExists struct {
	Key Key
}

func (e ErrKeyExists) Error() string {
	return "session key already exists: " + string(e.Key)
}

// InvalidKeyError is returned by ParseKey for malformed keys.
type InvalidKeyError struct {
	Value string
	Err   error
}

func (e InvalidKeyError) Error() string {
	return "invalid session key " + e.Value + ": " + e.Err.Error()
}

func (e InvalidKeyError) Unwrap() error {
	return e.Err
}
