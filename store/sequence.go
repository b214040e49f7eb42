package store

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Sequence hands out monotonically increasing uint64 identifiers, persisting
// the last allocated value under a single key. The first allocation returns 1.
type Sequence struct {
	backing BackingStore
	key     []byte
}

// NewSequence creates a sequence stored under the given key
func NewSequence(backing BackingStore, key []byte) *Sequence {
	return &Sequence{backing: backing, key: append([]byte(nil), key...)}
}

// Peek returns the last allocated value without advancing, zero if none
func (s *Sequence) Peek() (uint64, error) {
	if s == nil {
		return 0, ErrStoreNil
	}
	raw, err := s.backing.Get(s.key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return 0, nil
		}
		return 0, err
	}
	if len(raw) != 8 {
		return 0, fmt.Errorf("%w: sequence value is %d bytes", ErrInvalidValue, len(raw))
	}
	return binary.BigEndian.Uint64(raw), nil
}

// Next allocates and persists the next value
func (s *Sequence) Next() (uint64, error) {
	last, err := s.Peek()
	if err != nil {
		return 0, err
	}
	next := last + 1
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, next)
	if err := s.backing.Set(s.key, buf); err != nil {
		return 0, err
	}
	return next, nil
}
