// Package fetch coordinates calls to a caller-supplied asynchronous fetch
// function, layering caching, deduplication, retry with backoff,
// cancellation, stale-while-revalidate, and silent background refresh on
// top of it.
//
// # Coordinator
//
// A [Coordinator] owns one cache key and one [Fetcher]. [Coordinator.Load]
// returns a fresh cached value without invoking the fetcher; on a miss it
// runs the fetcher, stores the result, and returns it. [Coordinator.Refresh]
// always bypasses the cache. [Coordinator.Invalidate] drops the cached
// value and resets the coordinator to idle.
//
//	coord, err := fetch.New("prompts:team-1", func(ctx context.Context) ([]Prompt, error) {
//	    return client.ListPrompts(ctx, teamID)
//	}, fetch.WithTTL(time.Minute))
//	...
//	prompts, err := coord.Load(ctx)
//
// # Deduplication and Cancellation
//
// At most one fetch per coordinator is in flight at any instant. A new
// Load or Refresh cancels the outstanding attempt's context before starting
// its own, and only the most recently initiated attempt may write the cache
// or the visible status — a superseded attempt's result is discarded
// silently, and callers that were waiting on it settle on the result of the
// latest attempt instead. Cancellation is cooperative: a fetcher that
// ignores its context cannot be forcibly stopped.
//
// # Retry and Staleness
//
// A failed fetch is retried up to [Config].MaxRetries times with linearly
// increasing delay (retry n waits n × RetryDelay). When retries are
// exhausted and [Config].StaleWhileRevalidate is enabled, the last
// successfully fetched value — even one whose cache entry has expired — is
// served with the stale flag set instead of surfacing the error; otherwise
// the fetcher's error is returned verbatim, so errors.Is and errors.As
// work against the caller's own error types.
//
// # Background Refresh
//
// With [Config].BackgroundRefresh enabled, a successful fetch arms a timer
// at RefreshAt × TTL (0.8 by default) that re-fetches silently: the
// status never flips to loading and no change notification fires for the
// refresh starting, only for its outcome. Failures follow the normal
// retry and staleness rules.
//
// # Observing State
//
// [Coordinator.Snapshot] returns the status, data, error, stale flag, and
// retry count as one consistent read. [Coordinator.OnChange] registers a
// callback invoked (outside the coordinator's lock) after every visible
// transition. Each fetch attempt is wrapped in an OpenTelemetry span;
// spans are no-ops unless the host application installs a tracer provider.
package fetch
