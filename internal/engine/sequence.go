package engine

import "math"

// nextBase advances the engine's transaction-ID counter and returns the
// base value for the ID window this call will use: servers are stamped
// with base, base+1, ..., base+len(servers)-1.
//
// This is called exactly once per Resolve call, not once per retry attempt:
// every attempt within the same call reuses the same window, so a reply
// that arrives late from an earlier attempt still lands inside it instead
// of being treated as a stray.
//
// 0 is skipped as a counter value (kept available as an "unset" sentinel
// in diagnostic output) and the counter wraps back to 1 before base+maxServers
// would overflow a uint16, so the window [base, base+maxServers) is always
// representable.
func (e *Engine) nextBase(maxServers int) uint16 {
	e.counter++
	if e.counter == 0 {
		e.counter++
	}
	if int(e.counter) > math.MaxUint16-maxServers {
		e.counter = 1
	}
	return e.counter
}
