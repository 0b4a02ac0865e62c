package memory

// Hooks receives store events. Implementations must be cheap and must not
// call back into the Store; they run on hot paths, outside the store lock.
type Hooks interface {
	Hit()
	Miss()
	// Expired reports entries removed because their TTL passed.
	Expired(n int)
	// Evicted reports entries removed by the capacity phase.
	Evicted(n int)
	// Size reports the entry count after a mutation. Calls are serialized
	// and the last one matches the store once mutations stop.
	Size(n int)
}

// NopHooks ignores every event.
type NopHooks struct{}

func (NopHooks) Hit()        {}
func (NopHooks) Miss()       {}
func (NopHooks) Expired(int) {}
func (NopHooks) Evicted(int) {}
func (NopHooks) Size(int)    {}
