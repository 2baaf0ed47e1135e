package typecache

// Cache maps type OIDs to type names over a fixed number of slots, evicting
// with CLOCK (second-chance). It is not safe for concurrent use.
type Cache struct {
	slots []slot
	index map[uint32]int // oid -> slot
	hand  int
}

type slot struct {
	oid     uint32
	name    string
	ref     bool
	present bool
}

func New(capacity int) *Cache {
	if capacity <= 0 {
		capacity = 1
	}
	return &Cache{
		slots: make([]slot, capacity),
		index: make(map[uint32]int, capacity),
	}
}

func (c *Cache) Capacity() int { return len(c.slots) }

func (c *Cache) Len() int { return len(c.index) }

// Get returns the cached name and marks the slot recently used.
func (c *Cache) Get(oid uint32) (string, bool) {
	i, ok := c.index[oid]
	if !ok {
		return "", false
	}
	c.slots[i].ref = true
	return c.slots[i].name, true
}

// Put stores name for oid, evicting another entry when every slot is taken.
func (c *Cache) Put(oid uint32, name string) {
	if i, ok := c.index[oid]; ok {
		c.slots[i].name = name
		c.slots[i].ref = true
		return
	}

	i := c.free()
	if i < 0 {
		i = c.evict()
	}
	c.slots[i] = slot{oid: oid, name: name, ref: true, present: true}
	c.index[oid] = i
}

func (c *Cache) free() int {
	if len(c.index) == len(c.slots) {
		return -1
	}
	for i := range c.slots {
		if !c.slots[i].present {
			return i
		}
	}
	return -1
}

// evict clears one slot and returns it. Every slot is present when it runs,
// so two sweeps always find a victim.
func (c *Cache) evict() int {
	n := len(c.slots)
	for range 2 * n {
		idx := c.hand
		c.hand = (c.hand + 1) % n

		s := &c.slots[idx]
		if s.ref {
			// second chance
			s.ref = false
			continue
		}
		delete(c.index, s.oid)
		*s = slot{}
		return idx
	}
	// unreachable: the first sweep cleared every ref bit
	return c.hand
}
