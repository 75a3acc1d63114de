package journal

import (
	"cmp"
	"slices"
)

// Filter selects a dynamic stream of entries. Its items are OR-ed, an item with no kinds and no
// predicates is dropped, and an empty Filter matches every entry.
type Filter struct {
	items []FilterItem
}

// Items returns the OR-ed items of the Filter.
func (f Filter) Items() []FilterItem {
	return f.items
}

// FilterItem is a conjunction of "any of these kinds" and "any (or all) of these predicates".
type FilterItem struct {
	kinds                  []string
	predicates             []Predicate
	allPredicatesMustMatch bool
}

func (fi FilterItem) Kinds() []string {
	return fi.kinds
}

func (fi FilterItem) Predicates() []Predicate {
	return fi.predicates
}

func (fi FilterItem) AllPredicatesMustMatch() bool {
	return fi.allPredicatesMustMatch
}

// Predicate matches a top level string field of an entry payload.
type Predicate struct {
	key string
	val string
}

// P builds a Predicate.
func P(key, val string) Predicate {
	return Predicate{key: key, val: val}
}

func (p Predicate) Key() string {
	return p.key
}

func (p Predicate) Val() string {
	return p.val
}

// FilterBuilder only allows combinations that make sense for a decision:
//
//   - (kind OR kind...)
//   - (predicate OR predicate...) or (predicate AND predicate...)
//   - (kinds) AND (predicates)
//   - several of the above OR-ed via OrMatching
type FilterBuilder interface {
	// Matching starts a new FilterItem.
	Matching() EmptyFilterItemBuilder

	// MatchingAnyEntry returns the empty Filter.
	MatchingAnyEntry() Filter
}

type EmptyFilterItemBuilder interface {
	AnyKindOf(kind string, kinds ...string) FilterItemBuilderLackingPredicates
	AnyPredicateOf(predicate Predicate, predicates ...Predicate) FilterItemBuilderLackingKinds
	AllPredicatesOf(predicate Predicate, predicates ...Predicate) FilterItemBuilderLackingKinds
}

type FilterItemBuilderLackingPredicates interface {
	AndAnyPredicateOf(predicate Predicate, predicates ...Predicate) CompletedFilterItemBuilder
	AndAllPredicatesOf(predicate Predicate, predicates ...Predicate) CompletedFilterItemBuilder
	CompletedFilterItemBuilder
}

type FilterItemBuilderLackingKinds interface {
	AndAnyKindOf(kind string, kinds ...string) CompletedFilterItemBuilder
	CompletedFilterItemBuilder
}

type CompletedFilterItemBuilder interface {
	// OrMatching closes the current FilterItem and starts a new one.
	OrMatching() EmptyFilterItemBuilder

	// Finalize closes the current FilterItem and returns the Filter.
	Finalize() Filter
}

type filterBuilder struct {
	filter      Filter
	currentItem FilterItem
}

// BuildFilter starts a Filter which must be closed with Finalize or MatchingAnyEntry.
func BuildFilter() FilterBuilder {
	return filterBuilder{}
}

func (fb filterBuilder) Matching() EmptyFilterItemBuilder {
	fb.currentItem = FilterItem{}

	return fb
}

// AnyKindOf adds kinds to the current item. Empty kinds are dropped, the rest sorted and deduplicated.
func (fb filterBuilder) AnyKindOf(kind string, kinds ...string) FilterItemBuilderLackingPredicates {
	fb.currentItem.kinds = sanitizeKinds(append(fb.currentItem.kinds, append([]string{kind}, kinds...)...))

	return fb
}

func (fb filterBuilder) AndAnyKindOf(kind string, kinds ...string) CompletedFilterItemBuilder {
	return fb.AnyKindOf(kind, kinds...)
}

// AnyPredicateOf adds predicates of which any must match. Partial predicates are dropped,
// the rest sorted and deduplicated.
func (fb filterBuilder) AnyPredicateOf(predicate Predicate, predicates ...Predicate) FilterItemBuilderLackingKinds {
	fb.currentItem.predicates = sanitizePredicates(
		append(fb.currentItem.predicates, append([]Predicate{predicate}, predicates...)...),
	)

	return fb
}

func (fb filterBuilder) AndAnyPredicateOf(predicate Predicate, predicates ...Predicate) CompletedFilterItemBuilder {
	return fb.AnyPredicateOf(predicate, predicates...)
}

// AllPredicatesOf adds predicates which must all match.
func (fb filterBuilder) AllPredicatesOf(predicate Predicate, predicates ...Predicate) FilterItemBuilderLackingKinds {
	fb.currentItem.allPredicatesMustMatch = true

	return fb.AnyPredicateOf(predicate, predicates...)
}

func (fb filterBuilder) AndAllPredicatesOf(predicate Predicate, predicates ...Predicate) CompletedFilterItemBuilder {
	return fb.AllPredicatesOf(predicate, predicates...)
}

func (fb filterBuilder) OrMatching() EmptyFilterItemBuilder {
	fb.filter = fb.appendCurrentItem()
	fb.currentItem = FilterItem{}

	return fb
}

func (fb filterBuilder) MatchingAnyEntry() Filter {
	return Filter{}
}

func (fb filterBuilder) Finalize() Filter {
	return fb.appendCurrentItem()
}

func (fb filterBuilder) appendCurrentItem() Filter {
	if len(fb.currentItem.kinds) == 0 && len(fb.currentItem.predicates) == 0 {
		return fb.filter
	}

	items := slices.Clone(fb.filter.items)

	return Filter{items: append(items, fb.currentItem)}
}

func sanitizeKinds(kinds []string) []string {
	kinds = slices.DeleteFunc(slices.Clone(kinds), func(k string) bool { return k == "" })
	slices.Sort(kinds)

	return slices.Clip(slices.Compact(kinds))
}

func sanitizePredicates(predicates []Predicate) []Predicate {
	predicates = slices.DeleteFunc(
		slices.Clone(predicates),
		func(p Predicate) bool { return p.key == "" || p.val == "" },
	)

	slices.SortFunc(predicates, func(a, b Predicate) int {
		if c := cmp.Compare(a.key, b.key); c != 0 {
			return c
		}

		return cmp.Compare(a.val, b.val)
	})

	return slices.Clip(slices.Compact(predicates))
}
