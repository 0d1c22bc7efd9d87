package datastore

// Pager describes a result set's division into fixed-size pages.
type Pager struct {
	TotalEntries   int64
	EntriesPerPage int
	CurrentPage    int
}

// FirstPage is always 1.
func (p Pager) FirstPage() int { return 1 }

// LastPage is ceil(TotalEntries/EntriesPerPage), never below 1.
func (p Pager) LastPage() int {
	if p.EntriesPerPage < 1 {
		return 1
	}
	last := int((p.TotalEntries + int64(p.EntriesPerPage) - 1) / int64(p.EntriesPerPage))
	if last < 1 {
		return 1
	}
	return last
}

// NextPage returns the following page number, or 0 on the last page.
func (p Pager) NextPage() int {
	if p.CurrentPage >= p.LastPage() {
		return 0
	}
	return p.CurrentPage + 1
}

// PrevPage returns the preceding page number, or 0 on the first page.
func (p Pager) PrevPage() int {
	if p.CurrentPage <= 1 {
		return 0
	}
	return p.CurrentPage - 1
}

// FirstEntry returns the 1-based ordinal of the first entry on the current
// page, 0 when the result is empty.
func (p Pager) FirstEntry() int64 {
	if p.TotalEntries == 0 {
		return 0
	}
	return int64(p.CurrentPage-1)*int64(p.EntriesPerPage) + 1
}

// LastEntry returns the 1-based ordinal of the last entry on the current
// page, clamped to the total.
func (p Pager) LastEntry() int64 {
	last := int64(p.CurrentPage) * int64(p.EntriesPerPage)
	if last > p.TotalEntries {
		return p.TotalEntries
	}
	return last
}
