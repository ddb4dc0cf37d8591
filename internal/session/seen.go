package session

// seenCache is a fixed-capacity FIFO set of message ids used for inbound
// deduplication. ExistsOrAdd returns true if the id was already present;
// otherwise it records the id, evicting the oldest once over capacity.
type seenCache struct {
	cap int
	buf []string
	set map[string]struct{}
}

func newSeenCache(capacity int) *seenCache {
	if capacity <= 0 {
		capacity = 0
	}
	return &seenCache{cap: capacity, set: make(map[string]struct{}, capacity)}
}

func (c *seenCache) ExistsOrAdd(id string) bool {
	if c.cap == 0 || id == "" {
		return false
	}
	if _, ok := c.set[id]; ok {
		return true
	}
	c.set[id] = struct{}{}
	c.buf = append(c.buf, id)
	if len(c.buf) > c.cap {
		ev := c.buf[0]
		c.buf = c.buf[1:]
		delete(c.set, ev)
	}
	return false
}
