/*
Package resilience holds the circuit breaker that guards the poster service.

A Breaker counts call outcomes in windows. While closed it lets every call
through and opens once Settings.ReadyToTrip says so. While open it rejects
calls with ErrCircuitOpen until Settings.Timeout has passed, then lets
Settings.MaxRequests trial calls through half-open: enough successes close
it again, any failure reopens it.

	Closed --trip--> Open --timeout--> Half-Open --successes--> Closed
	                   ^                   |
	                   +-----failure-------+

Errors for which Settings.IsFailure returns false, such as a 404 from the
poster service, pass through without counting against it.

	breaker := resilience.New("poster-api", resilience.Settings{
		Timeout:     30 * time.Second,
		ReadyToTrip: func(c resilience.Counts) bool { return c.ConsecutiveFailures >= 5 },
	})
	doc, err := resilience.Call(ctx, breaker, func(ctx context.Context) (*poster.Document, error) {
		return api.GetPoster(ctx, id)
	})
*/
package resilience
