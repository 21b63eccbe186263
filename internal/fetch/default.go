package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// MaxBytes bounds a single download. MIDI files are small.
const MaxBytes = 8 << 20

type DefaultFetcher struct {
	Client    *http.Client
	UserAgent string
}

func NewDefaultFetcher(timeout time.Duration) *DefaultFetcher {
	return &DefaultFetcher{
		Client:    &http.Client{Timeout: timeout},
		UserAgent: UserAgent,
	}
}

func (f *DefaultFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if nil != err {
		return nil, fmt.Errorf("%w: %v", ErrNetworkFailure, err)
	}
	req.Header.Set("User-Agent", f.UserAgent)

	client := f.Client
	if nil == client {
		client = http.DefaultClient
	}
	res, err := client.Do(req)
	if nil != err {
		return nil, fmt.Errorf("%w: %v", ErrNetworkFailure, err)
	}
	defer res.Body.Close()

	switch {
	case res.StatusCode == http.StatusNotFound || res.StatusCode == http.StatusGone:
		return nil, fmt.Errorf("%w: %v", ErrNotFound, url)
	case res.StatusCode < 200 || res.StatusCode > 299:
		return nil, fmt.Errorf("%w: %v returned %v", ErrNetworkFailure, url, res.Status)
	}

	data, err := io.ReadAll(io.LimitReader(res.Body, MaxBytes+1))
	if nil != err {
		return nil, fmt.Errorf("%w: %v", ErrNetworkFailure, err)
	}
	if len(data) > MaxBytes {
		return nil, fmt.Errorf("%w: %v is larger than %v bytes", ErrNetworkFailure, url, MaxBytes)
	}
	return data, nil
}

// CachingFetcher serves repeated downloads from a Store. Store errors are
// logged and never fail a fetch.
type CachingFetcher struct {
	Fetcher Fetcher
	Store   Store
	Log     logrus.FieldLogger
}

func (f *CachingFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	return f.FetchTitled(ctx, url, "")
}

// FetchTitled is Fetch, recording title alongside a fresh download.
func (f *CachingFetcher) FetchTitled(ctx context.Context, url, title string) ([]byte, error) {
	data, ok, err := f.Store.Get(url)
	if nil != err {
		f.Log.WithError(err).WithField("url", url).Warn("unable to read song cache")
	} else if ok {
		f.Log.WithField("url", url).Debug("song cache hit")
		return data, nil
	}

	data, err = f.Fetcher.Fetch(ctx, url)
	if nil != err {
		return nil, err
	}
	if err := f.Store.Put(url, title, data); nil != err {
		f.Log.WithError(err).WithField("url", url).Warn("unable to write song cache")
	}
	return data, nil
}

// Forget drops a stored download that turned out not to be a song, so the
// next fetch goes to the network again.
func (f *CachingFetcher) Forget(url string) {
	if err := f.Store.Delete(url); nil != err {
		f.Log.WithError(err).WithField("url", url).Warn("unable to drop song from cache")
	}
}
