package upnp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/imroc/req/v3"

	"github.com/yath/sstcs/internal/common"
)

var ErrFetchStatus = errors.New("unexpected HTTP status")

// StatusError reports a non-2xx answer to a channel list download.
type StatusError struct {
	URL    string
	Status string
	Code   int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fetch %s: %s", e.URL, e.Status)
}

func (e *StatusError) Unwrap() error {
	return ErrFetchStatus
}

// Fetcher downloads channel lists over HTTP.
type Fetcher struct {
	client *req.Client
	log    *common.Logger
}

func NewFetcher(timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Fetcher{
		client: req.C().SetTimeout(timeout).SetUserAgent("sstcs"),
		log:    common.NewLogger("upnp.fetch"),
	}
}

// Fetch returns the body at url.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	f.log.Debugf("GET %s", url)
	resp, err := f.client.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	if !resp.IsSuccessState() {
		return nil, &StatusError{URL: url, Status: resp.Status, Code: resp.StatusCode}
	}
	body, err := resp.ToBytes()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", url, err)
	}
	f.log.Debugf("fetched %s from %s", common.FormatBytes(int64(len(body))), url)
	return body, nil
}
