package recorder

import "time"

func OverloadIngestStopTimeout(overload time.Duration) func() {
	timeoutRef := ingestStopTimeout
	ingestStopTimeout = overload
	return func() { ingestStopTimeout = timeoutRef }
}
