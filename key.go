package pulse

import (
	"fmt"
	"net/url"
	"strings"
)

// Params are the query parameters that identify one resource instance,
// e.g. {"position": "sidebar", "limit": "1"}.
type Params map[string]string

// Key composes the cache key of a resource instance as name?k1=v1&k2=v2 with
// parameters sorted by name, so equal params always map to the same key.
func Key(name string, params Params) string {
	if len(params) == 0 {
		return name
	}
	q := make(url.Values, len(params))
	for k, v := range params {
		q.Set(k, v)
	}
	return name + "?" + q.Encode()
}

// ParseKey splits a key produced by Key back into name and params.
func ParseKey(key string) (string, Params, error) {
	name, raw, _ := strings.Cut(key, "?")
	if name == "" {
		return "", nil, fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}

	q, err := url.ParseQuery(raw)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %q: %w", ErrInvalidKey, key, err)
	}

	params := make(Params, len(q))
	for k := range q {
		params[k] = q.Get(k)
	}
	return name, params, nil
}
