package telemetry

// Buffer is a most-recent-first list capped at a fixed size. Methods return
// copies, so a slice handed out by Items is never mutated afterwards.
type Buffer[T any] struct {
	max   int
	items []T
}

func NewBuffer[T any](max int) *Buffer[T] {
	if max <= 0 {
		max = 1
	}
	return &Buffer[T]{max: max}
}

// Prepend puts item at the front, evicting the oldest entries beyond the cap.
func (b *Buffer[T]) Prepend(item T) {
	n := len(b.items) + 1
	if n > b.max {
		n = b.max
	}
	next := make([]T, 0, n)
	next = append(next, item)
	next = append(next, b.items[:n-1]...)
	b.items = next
}

// Upsert removes every entry for which same reports true, then prepends item.
func (b *Buffer[T]) Upsert(item T, same func(T) bool) {
	kept := make([]T, 0, len(b.items))
	for _, it := range b.items {
		if !same(it) {
			kept = append(kept, it)
		}
	}
	b.items = kept
	b.Prepend(item)
}

// Replace swaps the whole content for items, which are taken as already
// ordered. The cap does not apply: a replacement is authoritative as given.
func (b *Buffer[T]) Replace(items []T) {
	next := make([]T, len(items))
	copy(next, items)
	b.items = next
}

func (b *Buffer[T]) Reset() {
	b.items = nil
}

func (b *Buffer[T]) Len() int {
	return len(b.items)
}

func (b *Buffer[T]) Items() []T {
	out := make([]T, len(b.items))
	copy(out, b.items)
	return out
}

// Feed holds the three telemetry lists of one instance.
type Feed struct {
	Logs *Buffer[LogEntry]
	Bets *Buffer[BetEntry]
	Tips *Buffer[TipEntry]
}

func NewFeed() *Feed {
	return &Feed{
		Logs: NewBuffer[LogEntry](MaxLogs),
		Bets: NewBuffer[BetEntry](MaxBets),
		Tips: NewBuffer[TipEntry](MaxTips),
	}
}

func (f *Feed) AddLog(e LogEntry) {
	f.Logs.Prepend(e)
}

func (f *Feed) AddBet(e BetEntry) {
	f.Bets.Prepend(e)
}

// ReplaceBets installs a bulk history result. Pushed bets shown until now are
// discarded; whichever writer ran last owns the list.
func (f *Feed) ReplaceBets(list []BetEntry) {
	f.Bets.Replace(list)
}

func (f *Feed) AddTip(e TipEntry) {
	f.Tips.Upsert(e, func(t TipEntry) bool { return t.ID == e.ID })
}

func (f *Feed) Reset() {
	f.Logs.Reset()
	f.Bets.Reset()
	f.Tips.Reset()
}
