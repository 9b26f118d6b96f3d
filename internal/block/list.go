package block

// List operations are pure: every function returns a fresh slice and leaves
// its input untouched. The never-empty invariant for a page's block list is
// the caller's responsibility (only the editing session knows the intended
// fallback type).

// Insert returns a copy of list with b inserted at index. An index of
// len(list) appends; out-of-range indexes are clamped.
func Insert(list []Block, index int, b Block) []Block {
	if index < 0 {
		index = 0
	}
	if index > len(list) {
		index = len(list)
	}
	out := make([]Block, 0, len(list)+1)
	out = append(out, list[:index]...)
	out = append(out, b)
	out = append(out, list[index:]...)
	return out
}

// Remove returns list without the block carrying id. Removing an absent id
// returns an equal copy.
func Remove(list []Block, id string) []Block {
	out := make([]Block, 0, len(list))
	for _, b := range list {
		if b.ID != id {
			out = append(out, b)
		}
	}
	return out
}

// Move removes the element at fromIndex and reinserts it at toIndex,
// preserving the relative order of everything else. Out-of-range indexes
// return an unchanged copy.
func Move(list []Block, fromIndex, toIndex int) []Block {
	if fromIndex < 0 || fromIndex >= len(list) || toIndex < 0 || toIndex >= len(list) {
		out := make([]Block, len(list))
		copy(out, list)
		return out
	}
	out := make([]Block, 0, len(list))
	out = append(out, list[:fromIndex]...)
	out = append(out, list[fromIndex+1:]...)
	moved := list[fromIndex]
	return Insert(out, toIndex, moved)
}

// IndexOf returns the position of the block with id, or -1 if absent.
func IndexOf(list []Block, id string) int {
	for i, b := range list {
		if b.ID == id {
			return i
		}
	}
	return -1
}

// Number computes the displayed 1-based index for the numberedList block at
// position i. Numbering is derived from the live list, never stored: the run
// start is found by scanning backward while the preceding blocks are also
// numbered list items, and a run restarts at 1 after any interruption.
// Returns 0 when list[i] is not a numberedList block.
func Number(list []Block, i int) int {
	if i < 0 || i >= len(list) || list[i].Type != TypeNumberedList {
		return 0
	}
	start := i
	for start > 0 && list[start-1].Type == TypeNumberedList {
		start--
	}
	return i - start + 1
}
