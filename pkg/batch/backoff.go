package batch

import (
	"errors"
	"time"

	"github.com/Sternrassler/snapshot-orchestrator/pkg/client"
)

// MaxColdStartBackoff caps the exponential cold-start backoff.
const MaxColdStartBackoff = 60 * time.Second

// Backoff returns the wait before the attempt following attempt (1-based).
func Backoff(class client.ErrorClass, attempt int, base time.Duration) time.Duration {
	switch class {
	case client.ErrorClassColdStart:
		if attempt < 1 {
			attempt = 1
		}
		d := base
		for i := 1; i < attempt; i++ {
			d *= 2
			if d >= MaxColdStartBackoff {
				return MaxColdStartBackoff
			}
		}
		if d > MaxColdStartBackoff {
			return MaxColdStartBackoff
		}
		return d
	case client.ErrorClassTimeout:
		return base * 2
	default:
		return base
	}
}

// classify extends client.Classify with service-reported failures.
func classify(err error) client.ErrorClass {
	class := client.Classify(err)
	if class != client.ErrorClassUnknown {
		return class
	}
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		return client.ErrorClassService
	}
	return class
}
