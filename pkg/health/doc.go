// Package health runs named dependency checks and serves them as liveness and
// readiness probes.
//
// Required checks (Redis, say) make the service unready when they fail.
// Checks wrapped with Optional only mark it degraded, which fits the realtime
// connection: cached data is still served while it is down.
//
//	checks := health.Checks{
//	    "redis":    redis.Healthcheck(rdb),
//	    "realtime": health.Optional(realtime.Healthcheck(manager)),
//	}
//	r.Get("/healthz", health.LivenessHandler())
//	r.Get("/readyz", health.ReadinessHandler(checks, health.WithLogger(log)))
//
// Responses are plain text unless the client asks for JSON with
// Accept: application/json or ?format=json.
package health
