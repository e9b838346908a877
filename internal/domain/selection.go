package domain

// SelectionSet is the operator-curated subset of items. It is only ever
// appended to.
type SelectionSet struct {
	Items []Item `json:"items"`
}

func (s *SelectionSet) Append(item Item) {
	s.Items = append(s.Items, item)
}

func (s *SelectionSet) Len() int {
	return len(s.Items)
}
