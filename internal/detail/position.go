// Package detail computes where the expanded café panel goes in the grid.
//
// The grid is a flat list of cards laid out row by row. Opening a card inserts
// a full-width detail row directly after the last card of the row the opened
// card sits in. Row width is measured by the browser and posted with the
// request; when the measurement is unusable a breakpoint table is used.
package detail

import "math"

// Row is an element of the display list.
type Row interface {
	RowID() int
	IsDetail() bool
}

// Measurement is what the browser reports about the rendered grid.
type Measurement struct {
	ViewportWidth int
	// Tops holds the top offsets of the rendered cards in list order.
	Tops []float64
}

const rowTolerance = 5.0

// ItemsPerRow counts the cards before the first row break. Fewer than two
// measured cards fall back to the breakpoint table.
func ItemsPerRow(m Measurement) int {
	if len(m.Tops) < 2 {
		return FallbackItemsPerRow(m.ViewportWidth)
	}
	first := m.Tops[0]
	count := 0
	for _, top := range m.Tops {
		if math.Abs(top-first) >= rowTolerance {
			break
		}
		count++
	}
	if count > 0 {
		return count
	}
	return FallbackItemsPerRow(m.ViewportWidth)
}

// FallbackItemsPerRow maps a viewport width to the grid's column count.
func FallbackItemsPerRow(width int) int {
	switch {
	case width <= 0:
		return 4
	case width >= 1280:
		return 4
	case width >= 1024:
		return 4
	case width >= 768:
		return 2
	default:
		return 1
	}
}

// TargetPosition returns the insertion index for the detail row of product id:
// right after the last card of its row, skipping over any detail row already
// present. ok is false when id is not among the cards; the returned index is
// then len(items).
func TargetPosition[T Row](items []T, itemsPerRow, id int) (int, bool) {
	if itemsPerRow < 1 {
		itemsPerRow = 1
	}
	pos := -1
	n := 0
	for _, it := range items {
		if it.IsDetail() {
			continue
		}
		if pos < 0 && it.RowID() == id {
			pos = n
		}
		n++
	}
	if pos < 0 {
		return len(items), false
	}
	end := (pos/itemsPerRow + 1) * itemsPerRow
	count := 0
	for i, it := range items {
		if it.IsDetail() {
			continue
		}
		count++
		if count > end {
			return i, true
		}
	}
	return len(items), true
}

// IndexOfDetail returns the index of the detail row, or -1.
func IndexOfDetail[T Row](items []T) int {
	for i, it := range items {
		if it.IsDetail() {
			return i
		}
	}
	return -1
}

// IndexOfProduct returns the index of the card with the given id, or -1.
func IndexOfProduct[T Row](items []T, id int) int {
	for i, it := range items {
		if !it.IsDetail() && it.RowID() == id {
			return i
		}
	}
	return -1
}

// RemoveDetail drops every detail row. It reports whether anything was removed.
func RemoveDetail[T Row](items []T) ([]T, bool) {
	out := make([]T, 0, len(items))
	removed := false
	for _, it := range items {
		if it.IsDetail() {
			removed = true
			continue
		}
		out = append(out, it)
	}
	if !removed {
		return items, false
	}
	return out, true
}

// Insert places v at index at (clamped to the list bounds) and returns a new list.
func Insert[T any](items []T, at int, v T) []T {
	if at < 0 {
		at = 0
	}
	if at > len(items) {
		at = len(items)
	}
	out := make([]T, 0, len(items)+1)
	out = append(out, items[:at]...)
	out = append(out, v)
	return append(out, items[at:]...)
}
