// Package id generates sortable identifiers for sessions and connections.
package id

import (
	"crypto/rand"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// NewID returns a lowercase ULID. IDs generated later sort after earlier ones.
func NewID() (string, error) {
	return newIDAt(time.Now())
}

func newIDAt(at time.Time) (string, error) {
	value, err := ulid.New(ulid.Timestamp(at), rand.Reader)
	if err != nil {
		return "", err
	}
	return strings.ToLower(value.String()), nil
}

// Time returns when id was generated.
func Time(id string) (time.Time, error) {
	value, err := ulid.ParseStrict(strings.ToUpper(id))
	if err != nil {
		return time.Time{}, err
	}
	return ulid.Time(value.Time()), nil
}
