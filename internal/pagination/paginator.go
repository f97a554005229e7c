// Package pagination resolves a requested page number against a total count.
package pagination

import "strconv"

// PageSize is the number of posts shown on every timeline page.
const PageSize = 10

// Page describes one page of a larger, already counted collection.
type Page struct {
	Number   int
	NumPages int
	Count    int64
	PerPage  int
}

// New clamps the raw "page" query value into range. Anything that is not a
// positive integer yields the first page; numbers past the end yield the last.
// An empty collection still has one page.
func New(count int64, rawPage string, perPage int) Page {
	if perPage <= 0 {
		perPage = PageSize
	}
	if count < 0 {
		count = 0
	}

	numPages := int((count + int64(perPage) - 1) / int64(perPage))
	if numPages < 1 {
		numPages = 1
	}

	number, err := strconv.Atoi(rawPage)
	if err != nil || number < 1 {
		number = 1
	}
	if number > numPages {
		number = numPages
	}

	return Page{Number: number, NumPages: numPages, Count: count, PerPage: perPage}
}

func (p Page) Offset() int { return (p.Number - 1) * p.PerPage }

func (p Page) Limit() int { return p.PerPage }

func (p Page) HasPrevious() bool { return p.Number > 1 }

func (p Page) HasNext() bool { return p.Number < p.NumPages }

func (p Page) PreviousNumber() int { return p.Number - 1 }

func (p Page) NextNumber() int { return p.Number + 1 }

// HasOtherPages reports whether navigation links are needed at all.
func (p Page) HasOtherPages() bool { return p.NumPages > 1 }
