package detail

// Transition is the effect of an open request on the panel.
type Transition int

const (
	TransitionNone Transition = iota
	TransitionOpen
	TransitionClose
	TransitionSwitch
)

func (t Transition) String() string {
	switch t {
	case TransitionOpen:
		return "open"
	case TransitionClose:
		return "close"
	case TransitionSwitch:
		return "switch"
	default:
		return "none"
	}
}

// Panel tracks which product's detail row is open. The zero value is closed.
type Panel struct {
	open      bool
	productID int
}

// Current returns the open product id.
func (p Panel) Current() (int, bool) {
	return p.productID, p.open
}

// Next reports what an open request for id would do.
func (p Panel) Next(id int) Transition {
	switch {
	case !p.open:
		return TransitionOpen
	case p.productID == id:
		return TransitionClose
	default:
		return TransitionSwitch
	}
}

// Open marks the detail row of id as open.
func (p *Panel) Open(id int) {
	p.open = true
	p.productID = id
}

// Close resets the panel.
func (p *Panel) Close() {
	p.open = false
	p.productID = 0
}

// Toggle handles an open request for id. detailOf turns the product's card
// into its detail row. ok is false when the product is not in the list; the
// list and panel are then left as they were.
func Toggle[T Row](items []T, p *Panel, id, itemsPerRow int, detailOf func(T) T) ([]T, Transition, bool) {
	t := p.Next(id)
	if t == TransitionClose {
		out, _ := RemoveDetail(items)
		p.Close()
		return out, t, true
	}
	idx := IndexOfProduct(items, id)
	if idx < 0 {
		return items, TransitionNone, false
	}
	product := items[idx]
	cleaned, _ := RemoveDetail(items)
	pos, _ := TargetPosition(cleaned, itemsPerRow, id)
	p.Open(id)
	return Insert(cleaned, pos, detailOf(product)), t, true
}

// Reflow recomputes the detail position after the row width changed. It
// reports false when nothing moved.
func Reflow[T Row](items []T, p *Panel, itemsPerRow int, detailOf func(T) T) ([]T, bool) {
	id, open := p.Current()
	if !open {
		return items, false
	}
	idx := IndexOfProduct(items, id)
	if idx < 0 {
		out, removed := RemoveDetail(items)
		p.Close()
		return out, removed
	}
	current := IndexOfDetail(items)
	cleaned, _ := RemoveDetail(items)
	pos, _ := TargetPosition(cleaned, itemsPerRow, id)
	if current == pos {
		return items, false
	}
	return Insert(cleaned, pos, detailOf(items[idx])), true
}
