// Package fetch downloads song files.
package fetch

import (
	"context"
	"errors"
)

var (
	// ErrNetworkFailure covers transport errors and unexpected responses.
	ErrNetworkFailure = errors.New("network failure")
	// ErrNotFound is returned when the server says the file is gone.
	ErrNotFound = errors.New("not found")
)

const UserAgent = "keys/0.3 (terminal piano trainer)"

type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Store keeps fetched files by URL.
type Store interface {
	Get(url string) ([]byte, bool, error)
	Put(url, title string, data []byte) error
	Delete(url string) error
}
