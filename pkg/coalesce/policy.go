package coalesce

import "time"

// Policy picks the TTL for a freshly fetched value. It runs on every write,
// so one key can get a different TTL from one fetch to the next.
type Policy[V any] func(V) time.Duration

// Fixed returns a policy that always uses ttl.
func Fixed[V any](ttl time.Duration) Policy[V] {
	return func(V) time.Duration { return ttl }
}

// Volatile returns a policy that uses short while isLive reports true and long otherwise.
//
// Example:
//
//	policy := coalesce.Volatile(func(s Score) bool { return s.Live }, 10*time.Second, 10*time.Minute)
func Volatile[V any](isLive func(V) bool, short, long time.Duration) Policy[V] {
	return func(v V) time.Duration {
		if isLive(v) {
			return short
		}
		return long
	}
}
