/*
Package resilience provides a circuit breaker for calls to model providers.

A provider outage should fail generation requests fast instead of letting
every request wait out the HTTP timeout. Each provider gets its own Breaker.

# Usage

	breaker := resilience.New("anthropic", resilience.Settings{
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts resilience.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})

	app, err := resilience.Execute(breaker, func() (*types.GeneratedApp, error) {
		return provider.call(ctx, prompt)
	})

# States

	Closed --[failures]-> Open --[timeout]-> Half-Open --[successes]-> Closed
	                                           |
	                                       [failure]
	                                           v
	                                          Open

Context cancellation by the caller is not counted as a failure.
*/
package resilience
