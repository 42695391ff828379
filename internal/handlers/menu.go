package handlers

import "cafefinder.de/web/internal/cafe"

// MenuData is the view model of a café menu page.
type MenuData struct {
	Layout
	Slug       string
	MenuID     int
	Cafe       *Card
	Categories []cafe.MenuCategory
	ItemCount  int
	Selected   int
	Err        string
}

// MenuItemData is the fragment of one selectable menu item.
type MenuItemData struct {
	Slug       string
	MenuID     int
	CategoryID int
	Item       cafe.MenuItem
	CSRFToken  string
	Lang       string
}

// DebugData is the view model of the menu lookup log.
type DebugData struct {
	Layout
	Slug   string
	Logs   []string
	Errors []string
	Raw    []RawResponse
}

// RawResponse is one captured content API payload.
type RawResponse struct {
	Key  string
	Body string
}

// CountSelected counts selected items across categories.
func CountSelected(categories []cafe.MenuCategory) int {
	n := 0
	for _, c := range categories {
		for _, it := range c.Items {
			if it.Selected {
				n++
			}
		}
	}
	return n
}
