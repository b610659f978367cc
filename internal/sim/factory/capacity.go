package factory

// Weight is the per-unit weight of item. Items missing from the material
// table, or with a non-positive weight, count as 1.
func (r *Rules) Weight(item string) int {
	if d, ok := r.Catalogs.Material(item); ok && d.Weight > 0 {
		return d.Weight
	}
	return 1
}

// MaxStack is how many units of item fit in capacity.
func (r *Rules) MaxStack(item string, capacity int) int {
	if capacity <= 0 {
		return 0
	}
	return capacity / r.Weight(item)
}

// Remaining is how many more units of item the inventory accepts.
func (r *Rules) Remaining(inv map[string]int, item string, capacity int) int {
	left := r.MaxStack(item, capacity) - inv[item]
	if left < 0 {
		return 0
	}
	return left
}

// deposit adds up to n units and returns how many were stored; the rest is dropped.
func (r *Rules) deposit(inv map[string]int, item string, n, capacity int) int {
	if n <= 0 {
		return 0
	}
	if room := r.Remaining(inv, item, capacity); n > room {
		n = room
	}
	if n > 0 {
		inv[item] += n
	}
	return n
}

// withdraw removes n units, dropping the key when it reaches zero.
func withdraw(inv map[string]int, item string, n int) {
	inv[item] -= n
	if inv[item] <= 0 {
		delete(inv, item)
	}
}
