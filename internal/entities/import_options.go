package entities

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidOptions is wrapped by every Validate failure.
var ErrInvalidOptions = errors.New("invalid import options")

// ImportOptions is the query contract shared by every adapter. Each adapter
// maps these onto its own provider's query parameters; Limit always means
// "maximum number of items requested".
type ImportOptions struct {
	Category string `json:"category,omitempty" form:"category"`
	Search   string `json:"search,omitempty" form:"search"`
	Limit    int    `json:"limit,omitempty" form:"limit"`
	Offset   int    `json:"offset,omitempty" form:"offset"`
	Language string `json:"language,omitempty" form:"language"`
}

// WithDefaults returns a copy with trimmed fields and a limit of
// defaultLimit when none was given.
func (o ImportOptions) WithDefaults(defaultLimit int) ImportOptions {
	o.Category = strings.TrimSpace(o.Category)
	o.Search = strings.TrimSpace(o.Search)
	o.Language = strings.ToLower(strings.TrimSpace(o.Language))
	if o.Limit <= 0 {
		o.Limit = defaultLimit
	}
	return o
}

// Validate rejects options no provider can serve.
func (o ImportOptions) Validate() error {
	if o.Limit < 0 {
		return fmt.Errorf("%w: limit must not be negative: %d", ErrInvalidOptions, o.Limit)
	}
	if o.Offset < 0 {
		return fmt.Errorf("%w: offset must not be negative: %d", ErrInvalidOptions, o.Offset)
	}
	return nil
}
