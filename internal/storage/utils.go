package storage

import (
	"fmt"

	"github.com/google/uuid"
)

// ParseID parses an entity ID taken from a path or payload.
func ParseID(s string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid id %q: %w", s, err)
	}
	return id, nil
}
