// Package resilience groups the fault-tolerance building blocks the
// pipeline leans on when upstreams misbehave: circuit breakers for
// external calls (LLM providers, agency websites, the database) and
// retry with exponential backoff and jitter.
//
// Typical wiring:
//
//	cb := circuitbreaker.New(circuitbreaker.PageFetchConfig())
//	result, err := cb.Execute(func() (interface{}, error) {
//	    return fetchListingPage(ctx, url)
//	})
//
//	err := retry.WithBackoff(ctx, retry.DefaultConfig(), func() error {
//	    return saveOpportunity(ctx, item)
//	})
package resilience
