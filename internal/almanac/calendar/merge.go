package calendar

import (
	"container/heap"
	"iter"
	"sort"

	"github.com/freswa/almanac/internal/almanac/date"
	"github.com/freswa/almanac/internal/almanac/event"
	"github.com/freswa/almanac/internal/almanac/periodic"
)

// Iter returns a time-ordered stream of occurrences within [first, last]:
// Single events clipped to the window plus every Periodic's occurrences
// clipped to the window, merged into one ascending-by-(start, end) stream.
func (c *Calendar) Iter(first, last date.Date) iter.Seq[event.Event] {
	seqs := make([]iter.Seq[event.Event], 0, 1+len(c.Periodic))
	seqs = append(seqs, windowedSingle(c.Single, first, last))
	for _, p := range c.Periodic {
		seqs = append(seqs, windowedPeriodic(p, first, last))
	}
	return Merge(seqs...)
}

// windowedSingle slices Single (assumed sorted ascending by start) to the
// half-open range [i, j): i is the first index with Start >= first, found
// by binary search since Start is monotone. j is the first index with
// EndDate() > last; EndDate is not guaranteed monotone (a long early event
// can end after a short later one), so j is found by a linear scan from i
// rather than a second binary search.
func windowedSingle(single []event.Event, first, last date.Date) iter.Seq[event.Event] {
	i := sort.Search(len(single), func(i int) bool {
		return !single[i].Start.Before(first)
	})
	j := len(single)
	for k := i; k < len(single); k++ {
		if single[k].EndDate().After(last) {
			j = k
			break
		}
	}
	window := single[i:j]
	return func(yield func(event.Event) bool) {
		for _, ev := range window {
			if !yield(ev) {
				return
			}
		}
	}
}

// windowedPeriodic clips a Periodic's lazy occurrence sequence to
// [first, last]: occurrences ending before first are skipped, and the
// sequence stops once an occurrence starts after last.
func windowedPeriodic(p *periodic.Periodic, first, last date.Date) iter.Seq[event.Event] {
	return func(yield func(event.Event) bool) {
		for ev := range p.All() {
			if ev.EndDate().Before(first) {
				continue
			}
			if ev.Start.After(last) {
				return
			}
			if !yield(ev) {
				return
			}
		}
	}
}

// MergeCalendars k-way merges the windowed occurrence streams of several
// calendars, preserving ascending (start, end) order with ties broken by
// calendar insertion order.
func MergeCalendars(cals []*Calendar, first, last date.Date) iter.Seq[event.Event] {
	seqs := make([]iter.Seq[event.Event], len(cals))
	for i, c := range cals {
		seqs[i] = c.Iter(first, last)
	}
	return Merge(seqs...)
}

// Merge performs a stable k-way ordered merge of already-ordered
// sequences, using a min-heap of (next, source index) peeks re-heapified
// on each pop, per SPEC_FULL.md §4.5's design note.
func Merge(seqs ...iter.Seq[event.Event]) iter.Seq[event.Event] {
	return func(yield func(event.Event) bool) {
		h := make(peekHeap, 0, len(seqs))
		stops := make([]func(), 0, len(seqs))
		defer func() {
			for _, stop := range stops {
				stop()
			}
		}()

		for i, seq := range seqs {
			next, stop := iter.Pull(seq)
			stops = append(stops, stop)
			if ev, ok := next(); ok {
				heap.Push(&h, &peek{ev: ev, next: next, order: i})
			}
		}

		for h.Len() > 0 {
			top := heap.Pop(&h).(*peek)
			if !yield(top.ev) {
				return
			}
			if ev, ok := top.next(); ok {
				top.ev = ev
				heap.Push(&h, top)
			}
		}
	}
}

// peek is one source's current head value in the merge heap.
type peek struct {
	ev    event.Event
	next  func() (event.Event, bool)
	order int
}

type peekHeap []*peek

func (h peekHeap) Len() int { return len(h) }

func (h peekHeap) Less(i, j int) bool {
	if c := event.Compare(h[i].ev, h[j].ev); c != 0 {
		return c < 0
	}
	return h[i].order < h[j].order
}

func (h peekHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *peekHeap) Push(x any) { *h = append(*h, x.(*peek)) }

func (h *peekHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
