package listenpg

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Scope identifies one relay-backed exchange: a name scoped by vhost
// plus its declared arguments. A Scope is immutable once created; a
// policy change re-validates and re-establishes its connection rather
// than mutating it in place.
type Scope struct {
	Name  string
	VHost string
	Args  Arguments
}

// ID is the pool and registry key for the scope.
func (s *Scope) ID() string {
	return s.VHost + ":" + s.Name
}

func (s *Scope) Validate() error {
	err := validation.ValidateStruct(s,
		validation.Field(&s.Name, validation.Required),
		validation.Field(&s.VHost, validation.Required),
	)
	if err != nil {
		return newError(ErrCodeValidation, "invalid exchange declaration", err)
	}
	return nil
}

// scopeVHost extracts the vhost from a scope id.
func scopeVHost(id string) string {
	for i := 0; i < len(id); i++ {
		if id[i] == ':' {
			return id[:i]
		}
	}
	return ""
}
