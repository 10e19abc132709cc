package matcher

// AvailablePool is the insertion-ordered mutable sequence of drivers that have
// signed on but not yet been matched. Insertion order is driver sign-on time
// (earliest first), exactly the order Promote appends drivers from PendingPool.
// Backed by a growable slice: O(1) amortized push/pop-front, O(N) indexed
// removal, acceptable because N is bounded by concurrent driver supply.
type AvailablePool struct {
	drivers []int
}

// NewAvailablePool returns an empty available pool.
func NewAvailablePool() *AvailablePool {
	return &AvailablePool{}
}

// PushBack appends a newly promoted driver to the end of the pool.
func (p *AvailablePool) PushBack(driverID int) {
	p.drivers = append(p.drivers, driverID)
}

// Len returns the number of drivers currently available.
func (p *AvailablePool) Len() int {
	return len(p.drivers)
}

// At returns the driver id at index i without removing it.
func (p *AvailablePool) At(i int) int {
	return p.drivers[i]
}

// IDs returns a copy of the pool's driver ids in insertion order, safe for a
// policy to sort or scan without mutating the pool itself.
func (p *AvailablePool) IDs() []int {
	out := make([]int, len(p.drivers))
	copy(out, p.drivers)
	return out
}

// PopFront removes and returns the longest-waiting (earliest signed-on) driver.
func (p *AvailablePool) PopFront() (int, bool) {
	if len(p.drivers) == 0 {
		return 0, false
	}
	id := p.drivers[0]
	p.drivers = p.drivers[1:]
	return id, true
}

// RemoveAt removes and returns the driver at index i, preserving the relative
// order of the remaining drivers.
func (p *AvailablePool) RemoveAt(i int) int {
	id := p.drivers[i]
	p.drivers = append(p.drivers[:i], p.drivers[i+1:]...)
	return id
}
