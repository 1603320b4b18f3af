package daemon

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DefaultGroup is used when an identity names no group.
const DefaultGroup = "default"

var namePattern = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// Identity names a daemon. Name derives the lock and pid file paths.
type Identity struct {
	Name     string
	FullName string
	Group    string
}

func (id Identity) normalize() (Identity, error) {
	id.Name = strings.TrimSpace(id.Name)
	if id.Name == "" {
		return Identity{}, fmt.Errorf("%w: daemon name is required", ErrConfiguration)
	}
	if !namePattern.MatchString(id.Name) {
		return Identity{}, fmt.Errorf("%w: daemon name %q may only contain letters, digits, '.', '_' and '-'", ErrConfiguration, id.Name)
	}
	if strings.TrimSpace(id.FullName) == "" {
		id.FullName = cases.Title(language.Und).String(strings.NewReplacer("-", " ", "_", " ").Replace(id.Name))
	}
	if strings.TrimSpace(id.Group) == "" {
		id.Group = DefaultGroup
	}
	return id, nil
}
