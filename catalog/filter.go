package catalog

import (
	"sort"
	"strings"

	"github.com/user/pokesphere-go/store"
)

// Sort orders accepted by the list endpoint. The labels come straight from
// the UI's sort dropdown.
const (
	SortAscending  = "Ascending"
	SortDescending = "Descending"
)

// searchLimit caps the result when no search query is given, so the
// landing page renders a manageable first screen.
const searchLimit = 50

// Query collects the list endpoint's filter parameters. Zero values mean
// "not filtered by this"; all active predicates must hold at once.
type Query struct {
	Search  string
	Type    string
	Ability string
	Weight  int
	Height  int
	Sort    string
}

// active reports whether any filter predicate (other than search) is set.
func (q Query) active() bool {
	return q.Type != "" || q.Ability != "" || q.Weight > 0 || q.Height > 0 || q.Sort != ""
}

// normalize maps user-facing labels onto the catalog's naming scheme:
// lowercase, with spaces turned into dashes ("Shield Dust" → "shield-dust").
func normalize(label string) string {
	return strings.ReplaceAll(strings.ToLower(label), " ", "-")
}

// Apply filters, searches, and sorts items according to the query.
//
// Search runs first: a non-empty query keeps the items whose name contains
// the normalized query, while an empty query with no other predicate keeps
// only the first 50 entries. Filter predicates are conjunctive, and weight
// and height are lower bounds, not exact matches.
func Apply(items []store.CatalogItem, q Query) []store.CatalogItem {
	out := make([]store.CatalogItem, 0, len(items))

	if q.Search != "" {
		needle := normalize(q.Search)
		for _, item := range items {
			if strings.Contains(item.Name, needle) {
				out = append(out, item)
			}
		}
	} else if !q.active() {
		n := min(searchLimit, len(items))
		return append(out, items[:n]...)
	} else {
		out = append(out, items...)
	}

	if q.Type != "" {
		out = keep(out, func(item store.CatalogItem) bool {
			return contains(item.Types, normalize(q.Type))
		})
	}
	if q.Ability != "" {
		out = keep(out, func(item store.CatalogItem) bool {
			return contains(item.Abilities, normalize(q.Ability))
		})
	}
	if q.Weight > 0 {
		out = keep(out, func(item store.CatalogItem) bool { return item.Weight >= q.Weight })
	}
	if q.Height > 0 {
		out = keep(out, func(item store.CatalogItem) bool { return item.Height >= q.Height })
	}

	switch q.Sort {
	case SortAscending:
		sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	case SortDescending:
		sort.Slice(out, func(i, j int) bool { return out[i].Name > out[j].Name })
	}

	return out
}

func keep(items []store.CatalogItem, pred func(store.CatalogItem) bool) []store.CatalogItem {
	kept := items[:0]
	for _, item := range items {
		if pred(item) {
			kept = append(kept, item)
		}
	}
	return kept
}

func contains(values []string, want string) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}
