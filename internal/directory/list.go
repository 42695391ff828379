package directory

import (
	"go.uber.org/zap"

	"cafefinder.de/web/internal/cafe"
	"cafefinder.de/web/internal/detail"
)

// AddProducts replaces the grid with update when it is non-nil, then appends
// insert when given.
func (s *Store) AddProducts(update []cafe.Entry, insert *cafe.Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if update != nil {
		s.posts = cloneEntries(update)
		s.normalizeDetailLocked()
	}
	if insert != nil {
		s.insertLocked(len(s.posts), *insert)
	}
}

// AddProductDetail inserts e at index. A detail entry replaces any existing one.
func (s *Store) AddProductDetail(index int, e cafe.Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.insertLocked(index, e)
}

// RemoveProductDetail removes the entry at index; out of range is a no-op.
func (s *Store) RemoveProductDetail(index int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeAtLocked(index)
}

// Remove drops the detail entry, wherever it is.
func (s *Store) Remove() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeAtLocked(detail.IndexOfDetail(s.posts))
}

// Update appends e when index is past the end, otherwise inserts it at index.
func (s *Store) Update(index int, e cafe.Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index >= len(s.posts) {
		index = len(s.posts)
	}
	s.insertLocked(index, e)
}

// ClearProducts empties the grid and closes the panel.
func (s *Store) ClearProducts() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.posts = []cafe.Entry{}
	s.panel.Close()
}

// ToggleDetail opens, switches or closes the detail row for the café id.
// ok is false when the café is not in the grid.
func (s *Store) ToggleDetail(id, itemsPerRow int) (detail.Transition, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out, t, ok := detail.Toggle(s.posts, &s.panel, id, itemsPerRow, cafe.Entry.AsDetail)
	if !ok {
		s.logger.Warn("detail toggle for unknown cafe", zap.Int("id", id))
		return t, false
	}
	s.posts = out
	s.logger.Debug("detail toggled", zap.Int("id", id), zap.Stringer("transition", t), zap.Int("items_per_row", itemsPerRow))
	return t, true
}

// CloseDetail removes the detail row.
func (s *Store) CloseDetail() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.posts, _ = detail.RemoveDetail(s.posts)
	s.panel.Close()
}

// ReflowDetail moves the open detail row after the row width changed. It
// reports whether the grid changed.
func (s *Store) ReflowDetail(itemsPerRow int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	out, moved := detail.Reflow(s.posts, &s.panel, itemsPerRow, cafe.Entry.AsDetail)
	if moved {
		s.posts = out
	}
	return moved
}

// DetailState returns the café whose detail row is open.
func (s *Store) DetailState() (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.panel.Current()
}

func (s *Store) insertLocked(index int, e cafe.Entry) {
	if e.IsDetail() {
		if existing := detail.IndexOfDetail(s.posts); existing >= 0 {
			if existing < index {
				index--
			}
			s.posts, _ = detail.RemoveDetail(s.posts)
		}
		s.panel.Open(e.RowID())
	}
	s.posts = detail.Insert(s.posts, index, e)
}

func (s *Store) removeAtLocked(index int) {
	if index < 0 || index >= len(s.posts) {
		return
	}
	if s.posts[index].IsDetail() {
		s.panel.Close()
	}
	out := make([]cafe.Entry, 0, len(s.posts)-1)
	out = append(out, s.posts[:index]...)
	s.posts = append(out, s.posts[index+1:]...)
}

// normalizeDetailLocked keeps only the first detail entry.
func (s *Store) normalizeDetailLocked() {
	seen := false
	out := s.posts[:0]
	for _, e := range s.posts {
		if e.IsDetail() {
			if seen {
				continue
			}
			seen = true
			s.panel.Open(e.RowID())
		}
		out = append(out, e)
	}
	s.posts = out
	if !seen {
		s.panel.Close()
	}
}
