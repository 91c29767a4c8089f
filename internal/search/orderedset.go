package search

// orderedSet is a string set that remembers insertion order.
type orderedSet struct {
	seen  map[string]struct{}
	items []string
}

func newOrderedSet() *orderedSet {
	return &orderedSet{seen: make(map[string]struct{})}
}

// Add inserts item if unseen and reports whether it was added.
func (s *orderedSet) Add(item string) bool {
	if _, ok := s.seen[item]; ok {
		return false
	}
	s.seen[item] = struct{}{}
	s.items = append(s.items, item)
	return true
}

// Items returns the members in insertion order.
func (s *orderedSet) Items() []string {
	return s.items
}
