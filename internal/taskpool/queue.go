package taskpool

// unitQueue keeps pending units in descending priority order. A new unit
// is placed before the first strictly lower-priority unit, so units of
// equal priority stay in arrival order.
type unitQueue struct {
	items []WorkUnit
}

func (q *unitQueue) insert(unit WorkUnit) {
	idx := len(q.items)
	for i := range q.items {
		if q.items[i].Priority < unit.Priority {
			idx = i
			break
		}
	}
	q.items = append(q.items, WorkUnit{})
	copy(q.items[idx+1:], q.items[idx:])
	q.items[idx] = unit
}

func (q *unitQueue) pop() (WorkUnit, bool) {
	if len(q.items) == 0 {
		return WorkUnit{}, false
	}
	unit := q.items[0]
	copy(q.items, q.items[1:])
	q.items[len(q.items)-1] = WorkUnit{}
	q.items = q.items[:len(q.items)-1]
	return unit, true
}

func (q *unitQueue) len() int { return len(q.items) }

func (q *unitQueue) departmentCount(department string) int {
	n := 0
	for i := range q.items {
		if q.items[i].Department == department {
			n++
		}
	}
	return n
}

func (q *unitQueue) snapshot() []WorkUnit {
	out := make([]WorkUnit, len(q.items))
	copy(out, q.items)
	return out
}

func (q *unitQueue) drain() []WorkUnit {
	out := q.items
	q.items = nil
	return out
}
