package block

import "testing"

func paragraphs(contents ...string) []Block {
	out := make([]Block, len(contents))
	for i, c := range contents {
		b := New(TypeParagraph)
		b.Content = c
		out[i] = b
	}
	return out
}

func ids(list []Block) []string {
	out := make([]string, len(list))
	for i, b := range list {
		out[i] = b.ID
	}
	return out
}

func sameOrder(a, b []Block) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].ID != b[i].ID {
			return false
		}
	}
	return true
}

func TestInsert(t *testing.T) {
	list := paragraphs("a", "b", "c")
	nb := New(TypeParagraph)
	nb.Content = "x"

	cases := []struct {
		name  string
		index int
		want  int // resulting position of the new block
	}{
		{name: "front", index: 0, want: 0},
		{name: "middle", index: 1, want: 1},
		{name: "append at len", index: 3, want: 3},
		{name: "negative clamps to front", index: -2, want: 0},
		{name: "past end clamps to append", index: 99, want: 3},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Insert(list, tc.index, nb)
			if len(got) != 4 {
				t.Fatalf("expected 4 blocks, got %d", len(got))
			}
			if got[tc.want].ID != nb.ID {
				t.Fatalf("expected new block at %d, got ids %v", tc.want, ids(got))
			}
			if len(list) != 3 {
				t.Fatal("input list mutated")
			}
		})
	}
}

func TestRemove(t *testing.T) {
	list := paragraphs("a", "b", "c")
	got := Remove(list, list[1].ID)
	if len(got) != 2 || got[0].ID != list[0].ID || got[1].ID != list[2].ID {
		t.Fatalf("unexpected result ids %v", ids(got))
	}

	// Absent id returns an equal copy.
	same := Remove(list, "nope")
	if !sameOrder(same, list) {
		t.Fatal("removing absent id changed the list")
	}
}

func TestInsertRemoveRoundTrip(t *testing.T) {
	list := paragraphs("a", "b", "c", "d")
	nb := New(TypeParagraph)
	for i := 0; i <= len(list); i++ {
		got := Remove(Insert(list, i, nb), nb.ID)
		if !sameOrder(got, list) {
			t.Fatalf("round trip at index %d broke order: %v", i, ids(got))
		}
	}
}

func TestMove(t *testing.T) {
	list := paragraphs("a", "b", "c", "d")

	got := Move(list, 0, 2)
	wantContents := []string{"b", "c", "a", "d"}
	for i, w := range wantContents {
		if got[i].Content != w {
			t.Fatalf("position %d: got %q, want %q (full: %v)", i, got[i].Content, w, ids(got))
		}
	}

	got = Move(list, 3, 0)
	if got[0].Content != "d" || got[1].Content != "a" {
		t.Fatalf("move to front failed: %q %q", got[0].Content, got[1].Content)
	}
}

func TestMoveSelfIsIdentity(t *testing.T) {
	list := paragraphs("a", "b", "c")
	for i := range list {
		if got := Move(list, i, i); !sameOrder(got, list) {
			t.Fatalf("Move(list, %d, %d) changed order", i, i)
		}
	}
}

func TestMoveOutOfRange(t *testing.T) {
	list := paragraphs("a", "b")
	for _, pair := range [][2]int{{-1, 0}, {0, -1}, {2, 0}, {0, 2}} {
		if got := Move(list, pair[0], pair[1]); !sameOrder(got, list) {
			t.Fatalf("Move(%d, %d) changed order", pair[0], pair[1])
		}
	}
}

func TestIndexOf(t *testing.T) {
	list := paragraphs("a", "b")
	if got := IndexOf(list, list[1].ID); got != 1 {
		t.Fatalf("IndexOf = %d, want 1", got)
	}
	if got := IndexOf(list, "missing"); got != -1 {
		t.Fatalf("IndexOf missing = %d, want -1", got)
	}
	if got := IndexOf(nil, "x"); got != -1 {
		t.Fatalf("IndexOf on nil = %d, want -1", got)
	}
}

func TestNumberRuns(t *testing.T) {
	// [P, N, N, N, P, N, N] numbers as [_, 1, 2, 3, _, 1, 2].
	mk := func(t Type) Block { return New(t) }
	list := []Block{
		mk(TypeParagraph),
		mk(TypeNumberedList),
		mk(TypeNumberedList),
		mk(TypeNumberedList),
		mk(TypeParagraph),
		mk(TypeNumberedList),
		mk(TypeNumberedList),
	}
	want := []int{0, 1, 2, 3, 0, 1, 2}
	for i, w := range want {
		if got := Number(list, i); got != w {
			t.Fatalf("Number(list, %d) = %d, want %d", i, got, w)
		}
	}
}

func TestNumberRecomputesAfterEdits(t *testing.T) {
	list := []Block{New(TypeNumberedList), New(TypeNumberedList), New(TypeNumberedList)}
	if got := Number(list, 2); got != 3 {
		t.Fatalf("expected 3, got %d", got)
	}

	// Interrupting the run splits the numbering.
	split := Insert(list, 1, New(TypeParagraph))
	if got := Number(split, 0); got != 1 {
		t.Fatalf("before interrupt: got %d, want 1", got)
	}
	if got := Number(split, 2); got != 1 {
		t.Fatalf("after interrupt: got %d, want 1 (run restarts)", got)
	}
	if got := Number(split, 3); got != 2 {
		t.Fatalf("after interrupt: got %d, want 2", got)
	}

	// Removing the interruption joins the runs back together.
	joined := Remove(split, split[1].ID)
	if got := Number(joined, 2); got != 3 {
		t.Fatalf("after rejoin: got %d, want 3", got)
	}
}

func TestNumberEdgeCases(t *testing.T) {
	list := []Block{New(TypeParagraph)}
	if got := Number(list, 0); got != 0 {
		t.Fatalf("paragraph numbered %d", got)
	}
	if got := Number(list, -1); got != 0 {
		t.Fatal("negative index must return 0")
	}
	if got := Number(list, 5); got != 0 {
		t.Fatal("out-of-range index must return 0")
	}
	if got := Number(nil, 0); got != 0 {
		t.Fatal("nil list must return 0")
	}
}
