package domain

import (
	"fmt"
	"strings"
)

// TagID is a value object identifying a single point of data acquisition.
//
// Rules:
//   - must be non-empty
//   - max length 100 characters
//   - only alphanumeric, underscore, hyphen, and forward slash (for
//     hierarchical names like "plant1/area2/unit3/temp")
type TagID string

// NewTagID validates id and returns a TagID.
func NewTagID(id string) (TagID, error) {
	if id == "" {
		return "", fmt.Errorf("%w: tag id cannot be empty", ErrInvalidTagID)
	}
	if len(id) > 100 {
		return "", fmt.Errorf("%w: tag id too long: %d chars (max 100)", ErrInvalidTagID, len(id))
	}
	for _, c := range id {
		if !isTagIDRune(c) {
			return "", fmt.Errorf("%w: tag id %q must contain only alphanumeric, underscore, hyphen, and forward slash", ErrInvalidTagID, id)
		}
	}
	return TagID(id), nil
}

func isTagIDRune(c rune) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	case c == '_' || c == '-' || c == '/':
		return true
	default:
		return false
	}
}

func (t TagID) String() string {
	return string(t)
}

// IsHierarchical reports whether the tag ID uses "/" path segments.
func (t TagID) IsHierarchical() bool {
	return strings.Contains(string(t), "/")
}
