package httpfetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/dmitrymomot/pulse/pkg/coalesce"
)

// New returns a fetch function that GETs baseURL/{key} and decodes the JSON body
// into V. Keys have the form name?query, so "ads?limit=1&position=sidebar"
// becomes GET {baseURL}/ads?limit=1&position=sidebar.
//
// Example:
//
//	fetch := httpfetch.New[[]Ad]("https://api.example.com/v1",
//	    httpfetch.WithRateLimit(20, 5),
//	    httpfetch.WithDataField("data"),
//	)
func New[V any](baseURL string, opts ...Option) coalesce.FetchFunc[V] {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	base := strings.TrimRight(baseURL, "/")

	return func(ctx context.Context, key string) (V, error) {
		var zero V

		target, err := url.Parse(base + "/" + strings.TrimLeft(key, "/"))
		if err != nil || target.Scheme == "" || target.Host == "" {
			return zero, fmt.Errorf("%w: %q", ErrBaseURL, baseURL)
		}

		ctx, cancel := context.WithTimeout(ctx, o.timeout)
		defer cancel()

		if o.limiter != nil {
			if err := o.limiter.Wait(ctx); err != nil {
				return zero, errors.Join(ErrRequest, err)
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
		if err != nil {
			return zero, errors.Join(ErrRequest, err)
		}
		req.Header = o.header.Clone()
		req.Header.Set("Accept", "application/json")

		resp, err := o.client.Do(req)
		if err != nil {
			return zero, errors.Join(ErrRequest, err)
		}
		defer resp.Body.Close()

		body := io.LimitReader(resp.Body, o.maxBody)

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			snippet, _ := io.ReadAll(io.LimitReader(body, 512))
			return zero, &StatusError{
				URL:        target.String(),
				StatusCode: resp.StatusCode,
				Body:       string(snippet),
			}
		}

		return decode[V](body, o.dataField)
	}
}

func decode[V any](r io.Reader, field string) (V, error) {
	var v V

	if field == "" {
		if err := json.NewDecoder(r).Decode(&v); err != nil {
			return v, errors.Join(ErrDecode, err)
		}
		return v, nil
	}

	var wrapper map[string]json.RawMessage
	if err := json.NewDecoder(r).Decode(&wrapper); err != nil {
		return v, errors.Join(ErrDecode, err)
	}
	raw, ok := wrapper[field]
	if !ok {
		return v, fmt.Errorf("%w: missing field %q", ErrDecode, field)
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, errors.Join(ErrDecode, err)
	}
	return v, nil
}
