package models

import (
	"fmt"
	"strings"
)

// AccessLevel is the numeric access a grantee holds on a workflow or a stage.
// The values are part of the wire format and must not be renumbered.
type AccessLevel int

const (
	AccessRead  AccessLevel = 0
	AccessWrite AccessLevel = 1
)

// CanWrite reports whether the level allows mutations. Any level above READ
// counts as write-capable so finer-grained levels can be added later.
func (a AccessLevel) CanWrite() bool {
	return a > AccessRead
}

// Valid reports whether a is one of the defined levels.
func (a AccessLevel) Valid() bool {
	return a == AccessRead || a == AccessWrite
}

func (a AccessLevel) String() string {
	switch a {
	case AccessRead:
		return "read"
	case AccessWrite:
		return "write"
	default:
		return fmt.Sprintf("access(%d)", int(a))
	}
}

// ParseAccessLevel accepts the numeric form ("0", "1") and the names "read" and "write".
func ParseAccessLevel(value string) (AccessLevel, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "0", "read":
		return AccessRead, nil
	case "1", "write":
		return AccessWrite, nil
	default:
		return AccessRead, fmt.Errorf("unknown access level %q", value)
	}
}
