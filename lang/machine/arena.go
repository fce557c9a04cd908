package machine

// Arena is the thread-owned heap for list and string objects. Its four methods are exactly
// the surface an ahead-of-time backend is required to call instead of
// synthesising its own heap: AllocateString, AllocateList,
// InsertIntoList, ConcatenateStrings. The plain interpreter below is just
// its first caller.
//
// Dust relies on the Go garbage collector rather than reference counting:
// an Arena does not need an explicit free, since a DROP safepoint only needs to clear the register tag pointing at an object for it
// to become collectible once nothing else in the live register windows
// still reaches it. This keeps "the arena is free to defer reclamation"
// literally true without extra bookkeeping.
type Arena struct {
	// allocated counts every object this arena has produced, for thread
	// diagnostics only (e.g. to bound retained garbage in tests).
	allocated int
}

// AllocateString allocates a new StringObj holding s.
func (a *Arena) AllocateString(s string) *StringObj {
	a.allocated++
	return &StringObj{S: s}
}

// AllocateList allocates a new ListObj of length n, with every element
// initialised to an EMPTY register; InsertIntoList fills it in afterwards.
func (a *Arena) AllocateList(n int) *ListObj {
	a.allocated++
	return &ListObj{Elems: make([]Register, n), Tags: make([]RegisterTag, n)}
}

// InsertIntoList writes v (tagged t) into l at idx, as NEW_LIST/SET_LIST do
//.
func (a *Arena) InsertIntoList(l *ListObj, idx int, v Register, t RegisterTag) {
	l.Elems[idx] = v
	l.Tags[idx] = t
}

// ConcatenateStrings allocates a new StringObj holding the concatenation of
// x and y, the arena-side half of Dust's string '+' operator.
func (a *Arena) ConcatenateStrings(x, y *StringObj) *StringObj {
	a.allocated++
	return &StringObj{S: x.S + y.S}
}

// Allocated reports how many objects this arena has ever produced
// (including ones since reclaimed by the Go garbage collector); it is a
// diagnostic counter, not a live-object count.
func (a *Arena) Allocated() int { return a.allocated }
