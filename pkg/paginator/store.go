package paginator

// ResultStore holds page records in page-index slots so the final order
// never depends on completion order. It is not safe for concurrent use; the
// paginator's merge loop is its only writer.
type ResultStore struct {
	pages  [][]any
	filled []bool
	stored int
	count  int
}

// NewResultStore returns an empty store.
func NewResultStore() *ResultStore {
	return &ResultStore{}
}

// Reserve sizes the store for totalPages pages, discarding any content.
func (s *ResultStore) Reserve(totalPages int) {
	if totalPages < 0 {
		totalPages = 0
	}
	s.pages = make([][]any, totalPages)
	s.filled = make([]bool, totalPages)
	s.stored = 0
	s.count = 0
}

// Put stores the records of page. It reports false, storing nothing, when
// page is outside the reserved range or was already stored.
func (s *ResultStore) Put(page int, records []any) bool {
	i := page - 1
	if i < 0 || i >= len(s.pages) || s.filled[i] {
		return false
	}
	s.pages[i] = records
	s.filled[i] = true
	s.stored++
	s.count += len(records)
	return true
}

// Len returns the number of stored records.
func (s *ResultStore) Len() int {
	return s.count
}

// PagesStored returns how many pages have been stored.
func (s *ResultStore) PagesStored() int {
	return s.stored
}

// Finalize returns all records ordered by page index, then in-page offset.
func (s *ResultStore) Finalize() []any {
	out := make([]any, 0, s.count)
	for _, records := range s.pages {
		out = append(out, records...)
	}
	return out
}
