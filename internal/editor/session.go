// Package editor holds the per-page editing session: the block list, the
// focused block, and the key-driven transitions that mutate them. Every
// mutating transition is gated by the caller's workspace permissions; without
// can_edit each one is a silent no-op so read-only viewers never see errors.
//
// All state is in-memory and transitions are synchronous. Persistence is
// fire-and-forget through the Persister interface: the session never blocks
// a local edit on a save completing, and save failures surface through the
// host application's error channel, not through document state.
package editor

import (
	"inkwell/api/internal/block"
	"inkwell/api/internal/rbac"
)

// Page is the stored state a session opens from.
type Page struct {
	ID     string
	Title  string
	Blocks []block.Block
}

// Persister receives optimistic state changes. Implementations must not
// block; errors are theirs to surface.
type Persister interface {
	SavePageTitle(pageID, title string)
	SavePageBlocks(pageID string, blocks []block.Block)
}

type noopPersister struct{}

func (noopPersister) SavePageTitle(string, string)         {}
func (noopPersister) SavePageBlocks(string, []block.Block) {}

// Session is one open page's editing state. Not safe for concurrent use:
// the host event loop delivers one input event at a time.
type Session struct {
	pageID  string
	title   string
	blocks  []block.Block
	focused string
	perms   rbac.PermissionCheck
	persist Persister
	menu    menuState
}

func NewSession(persist Persister) *Session {
	if persist == nil {
		persist = noopPersister{}
	}
	return &Session{persist: persist}
}

// Open resets the entire session to the given page's stored state. This runs
// synchronously whenever the active page identity changes so a renderer can
// never observe the previous page's content.
func (s *Session) Open(page Page, perms rbac.PermissionCheck) {
	s.pageID = page.ID
	s.title = page.Title
	s.blocks = Normalize(page.Blocks)
	s.focused = ""
	s.perms = perms
	s.menu = menuState{}
}

// Normalize returns a copy of blocks, substituting a single fresh empty
// paragraph when the list is empty. This is the session-level enforcement of
// the never-empty invariant; the list primitives themselves stay neutral.
func Normalize(blocks []block.Block) []block.Block {
	if len(blocks) == 0 {
		return []block.Block{block.New(block.TypeParagraph)}
	}
	out := make([]block.Block, len(blocks))
	copy(out, blocks)
	return out
}

func (s *Session) PageID() string         { return s.pageID }
func (s *Session) Title() string          { return s.title }
func (s *Session) CanEdit() bool          { return s.perms.CanEdit }
func (s *Session) FocusedBlockID() string { return s.focused }

// Blocks returns a copy of the current block list in render/storage order.
func (s *Session) Blocks() []block.Block {
	out := make([]block.Block, len(s.blocks))
	copy(out, s.blocks)
	return out
}

// Number is the displayed index for the numbered-list block at position i,
// recomputed from the live list on every call.
func (s *Session) Number(i int) int {
	return block.Number(s.blocks, i)
}

// SetTitle updates the page title and propagates it immediately.
func (s *Session) SetTitle(title string) {
	if !s.perms.CanEdit {
		return
	}
	s.title = title
	s.persist.SavePageTitle(s.pageID, title)
}

// Focus marks a block as focused. Focusing is not a mutation and is allowed
// for viewers; an unknown id clears focus.
func (s *Session) Focus(id string) {
	if block.IndexOf(s.blocks, id) == -1 {
		s.focused = ""
		return
	}
	s.focused = id
}

func (s *Session) Blur() {
	s.focused = ""
}

// UpdateBlock merges a partial payload into the identified block.
func (s *Session) UpdateBlock(id string, patch block.Patch) {
	if !s.perms.CanEdit {
		return
	}
	idx := block.IndexOf(s.blocks, id)
	if idx == -1 {
		return
	}
	s.blocks[idx] = block.Merge(s.blocks[idx], patch)
	s.saveBlocks()
}

// Input handles a text change in a text-bearing block, including slash
// command detection: a "/" typed at the start of the text or right after
// whitespace opens the type menu, with everything after the slash (up to the
// cursor) as the filter query.
func (s *Session) Input(id string, text string, cursor int) {
	if !s.perms.CanEdit {
		return
	}
	idx := block.IndexOf(s.blocks, id)
	if idx == -1 || !block.IsTextBearing(s.blocks[idx].Type) {
		return
	}
	s.blocks[idx] = block.Merge(s.blocks[idx], block.Patch{Content: &text})

	// The menu only triggers from paragraphs, matching the editor surface.
	if s.blocks[idx].Type == block.TypeParagraph {
		if start, query, ok := slashTrigger(text, cursor); ok {
			if !s.menu.open || s.menu.query != query || s.menu.blockID != id {
				s.menu.selected = 0
			}
			if cursor > len(text) {
				cursor = len(text)
			}
			s.menu = menuState{open: true, blockID: id, query: query, start: start, end: cursor, selected: s.menu.selected}
		} else {
			s.menu = menuState{}
		}
	} else {
		s.menu = menuState{}
	}
	s.saveBlocks()
}

// PressEnter splits at the focused block: a new block is appended directly
// after it and takes focus. List items beget list items of the same type;
// everything else begets a paragraph. With the slash menu open, Enter
// commits the highlighted candidate instead.
func (s *Session) PressEnter() {
	if !s.perms.CanEdit {
		return
	}
	if s.menu.open {
		s.MenuCommit()
		return
	}
	idx := block.IndexOf(s.blocks, s.focused)
	if idx == -1 || !block.IsTextBearing(s.blocks[idx].Type) {
		return
	}

	newType := block.TypeParagraph
	switch s.blocks[idx].Type {
	case block.TypeBulletList:
		newType = block.TypeBulletList
	case block.TypeNumberedList:
		newType = block.TypeNumberedList
	}

	nb := block.New(newType)
	s.blocks = block.Insert(s.blocks, idx+1, nb)
	s.focused = nb.ID
	s.saveBlocks()
}

// PressBackspace handles Backspace on an empty focused block. Empty list
// items outdent to a paragraph rather than disappearing; empty paragraphs
// and headings are deleted outright, with the never-empty fallback applied.
// Blocks with remaining content are untouched (the text field consumes the
// key).
func (s *Session) PressBackspace() {
	if !s.perms.CanEdit {
		return
	}
	idx := block.IndexOf(s.blocks, s.focused)
	if idx == -1 {
		return
	}
	b := s.blocks[idx]
	if !block.IsTextBearing(b.Type) || b.Content != "" {
		return
	}

	switch b.Type {
	case block.TypeBulletList, block.TypeNumberedList:
		s.blocks[idx] = block.Convert(b, block.TypeParagraph)
		s.saveBlocks()
	default:
		s.removeWithFallback(idx, b.ID)
		s.saveBlocks()
	}
}

// ConvertBlock changes a block's type in place, preserving identity and,
// between text-bearing types, content.
func (s *Session) ConvertBlock(id string, newType block.Type) {
	if !s.perms.CanEdit {
		return
	}
	idx := block.IndexOf(s.blocks, id)
	if idx == -1 {
		return
	}
	s.blocks[idx] = block.Convert(s.blocks[idx], newType)
	s.saveBlocks()
}

// AddBlockAfter inserts a fresh block of the given type after afterID (or
// appends when afterID is empty or unknown) and focuses it.
func (s *Session) AddBlockAfter(afterID string, t block.Type) {
	if !s.perms.CanEdit {
		return
	}
	nb := block.New(t)
	idx := block.IndexOf(s.blocks, afterID)
	if idx == -1 {
		s.blocks = append(s.Blocks(), nb)
	} else {
		s.blocks = block.Insert(s.blocks, idx+1, nb)
	}
	s.focused = nb.ID
	s.saveBlocks()
}

// DeleteBlock removes a block outright (the block-level delete affordance).
func (s *Session) DeleteBlock(id string) {
	if !s.perms.CanEdit {
		return
	}
	idx := block.IndexOf(s.blocks, id)
	if idx == -1 {
		return
	}
	s.removeWithFallback(idx, id)
	s.saveBlocks()
}

// DragEnd reorders on drop: the dragged block takes the dropped-on block's
// position. Dropping a block on itself or outside any target is a no-op.
func (s *Session) DragEnd(activeID, overID string) {
	if !s.perms.CanEdit {
		return
	}
	if overID == "" || activeID == overID {
		return
	}
	from := block.IndexOf(s.blocks, activeID)
	to := block.IndexOf(s.blocks, overID)
	if from == -1 || to == -1 {
		return
	}
	s.blocks = block.Move(s.blocks, from, to)
	s.saveBlocks()
}

func (s *Session) removeWithFallback(idx int, id string) {
	s.blocks = block.Remove(s.blocks, id)
	if len(s.blocks) == 0 {
		nb := block.New(block.TypeParagraph)
		s.blocks = []block.Block{nb}
		s.focused = nb.ID
		return
	}
	if s.focused == id {
		prev := idx - 1
		if prev < 0 {
			prev = 0
		}
		s.focused = s.blocks[prev].ID
	}
}

func (s *Session) saveBlocks() {
	s.persist.SavePageBlocks(s.pageID, s.Blocks())
}

// MenuOpen reports whether the slash-command menu is showing.
func (s *Session) MenuOpen() bool { return s.menu.open }

// MenuQuery is the filter text typed after the slash.
func (s *Session) MenuQuery() string { return s.menu.query }

// MenuItems is the candidate list under the current query.
func (s *Session) MenuItems() []Option {
	if !s.menu.open {
		return nil
	}
	return FilterOptions(s.menu.query)
}

// MenuSelected is the highlighted candidate's index within MenuItems.
func (s *Session) MenuSelected() int { return s.menu.selected }

// MenuNext moves the highlight down, wrapping past the end.
func (s *Session) MenuNext() {
	items := s.MenuItems()
	if len(items) == 0 {
		return
	}
	s.menu.selected = (s.menu.selected + 1) % len(items)
}

// MenuPrev moves the highlight up, wrapping past the start.
func (s *Session) MenuPrev() {
	items := s.MenuItems()
	if len(items) == 0 {
		return
	}
	s.menu.selected = (s.menu.selected - 1 + len(items)) % len(items)
}

// MenuCommit applies the highlighted candidate: the slash trigger substring
// is stripped from the block's text and the block converts to the chosen
// type. Closes the menu.
func (s *Session) MenuCommit() {
	if !s.perms.CanEdit || !s.menu.open {
		return
	}
	items := s.MenuItems()
	menu := s.menu
	s.menu = menuState{}
	if len(items) == 0 {
		return
	}
	if menu.selected >= len(items) {
		menu.selected = 0
	}
	choice := items[menu.selected]

	idx := block.IndexOf(s.blocks, menu.blockID)
	if idx == -1 {
		return
	}
	content := s.blocks[idx].Content
	if menu.start <= len(content) && menu.end <= len(content) && menu.start <= menu.end {
		stripped := content[:menu.start] + content[menu.end:]
		s.blocks[idx] = block.Merge(s.blocks[idx], block.Patch{Content: &stripped})
	}
	s.blocks[idx] = block.Convert(s.blocks[idx], choice.Type)
	s.saveBlocks()
}

// MenuClose dismisses the menu without converting (Escape, click outside).
func (s *Session) MenuClose() {
	s.menu = menuState{}
}
