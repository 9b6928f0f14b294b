package bot

import "sync"

// updateFilter remembers the last N update ids to drop redelivered updates
type updateFilter struct {
	mu    sync.Mutex
	seen  map[int]struct{}
	order []int
	size  int
}

func newUpdateFilter(size int) *updateFilter {
	return &updateFilter{
		seen:  make(map[int]struct{}, size),
		order: make([]int, 0, size),
		size:  size,
	}
}

// firstSeen records id and reports whether it was not seen before
func (f *updateFilter) firstSeen(id int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.seen[id]; ok {
		return false
	}
	if len(f.order) == f.size {
		delete(f.seen, f.order[0])
		f.order = f.order[1:]
	}
	f.seen[id] = struct{}{}
	f.order = append(f.order, id)
	return true
}
