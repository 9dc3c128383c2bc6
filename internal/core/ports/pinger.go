package ports

import "context"

// Pinger is implemented by backing services that can report reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}
