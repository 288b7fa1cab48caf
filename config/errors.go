package config

import (
	"errors"
	"fmt"
)

var (
	ErrMissingCommand   = errors.New("no command specified")
	ErrMissingBaseImage = errors.New("base image not set")
	ErrMalformedConfig  = errors.New("malformed config file")
	ErrUnreadableFile   = errors.New("unreadable file")
	ErrInvalidIdentity  = errors.New("invalid uid or gid")
	ErrBadMount         = errors.New("cannot resolve mount path")
)

// Error is a configuration failure naming the offending source, either a
// file path or a flag name. The user must fix the input; it is never retried.
type Error struct {
	Source string
	Err    error
}

func (e *Error) Error() string {
	if e.Source == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Source, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func configErr(source string, err error) error {
	return &Error{Source: source, Err: err}
}
