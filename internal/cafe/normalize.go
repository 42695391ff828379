package cafe

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"cafefinder.de/web/internal/format"
)

const (
	DefaultCategoryTitle = "Unbenannte Kategorie"
	DefaultItemName      = "Unbenannter Artikel"
	DefaultPrice         = "0,00 €"
)

// ErrNoMenu is returned when a payload carries no usable category list.
var ErrNoMenu = errors.New("cafe: no menu categories")

// MenuCategory is a normalized menu category with its ordered items.
type MenuCategory struct {
	ID        int        `json:"id"`
	Title     string     `json:"title"`
	SortOrder int        `json:"sortOrder"`
	Items     []MenuItem `json:"items"`
}

// MenuItem is a normalized menu entry.
type MenuItem struct {
	ID          int      `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Price       string   `json:"price"`
	Tags        []string `json:"tags"`
	SortOrder   int      `json:"sortOrder"`
	Selected    bool     `json:"selected"`
}

// CountItems sums the items across categories.
func CountItems(categories []MenuCategory) int {
	n := 0
	for _, c := range categories {
		n += len(c.Items)
	}
	return n
}

// NormalizeEmbeddedMenu converts the categories embedded in a café's menu section.
func NormalizeEmbeddedMenu(section *MenuSection) ([]MenuCategory, error) {
	if !section.HasEmbeddedMenu() {
		return nil, ErrNoMenu
	}
	return NormalizeCategories(section.Menu)
}

// ExtractMenu pulls the category list out of a menu-section (or post menu_section)
// payload. Both the flat {categories:[...]} and the nested
// {attributes:{categories:{data:[...]}}} shapes are accepted. ok is false when no
// category array is present.
func ExtractMenu(data json.RawMessage) (categories []MenuCategory, ok bool, err error) {
	flat, err := Flatten(data)
	if err != nil {
		return nil, false, err
	}
	var holder struct {
		Categories json.RawMessage `json:"categories"`
		Menu       json.RawMessage `json:"menu"`
	}
	if bytes.HasPrefix(bytes.TrimSpace(flat), []byte("{")) {
		if err := json.Unmarshal(flat, &holder); err != nil {
			return nil, false, fmt.Errorf("cafe: decode menu payload: %w", err)
		}
	}
	for _, candidate := range []json.RawMessage{holder.Categories, holder.Menu} {
		if _, isArray := rawArray(candidate); !isArray {
			continue
		}
		cats, err := NormalizeCategories(candidate)
		if err != nil {
			return nil, false, err
		}
		return cats, true, nil
	}
	return nil, false, nil
}

// NormalizeCategories converts a category array into MenuCategory values sorted by
// sort order. Items inside each category are sorted the same way.
func NormalizeCategories(raw json.RawMessage) ([]MenuCategory, error) {
	flat, err := Flatten(raw)
	if err != nil {
		return nil, err
	}
	elems, ok := rawArray(flat)
	if !ok {
		return nil, ErrNoMenu
	}
	out := make([]MenuCategory, 0, len(elems))
	for i, el := range elems {
		var rc rawCategory
		if err := json.Unmarshal(el, &rc); err != nil {
			return nil, fmt.Errorf("cafe: decode category %d: %w", i, err)
		}
		items, err := normalizeItems(rc.itemsRaw())
		if err != nil {
			return nil, fmt.Errorf("cafe: category %d: %w", i, err)
		}
		out = append(out, MenuCategory{
			ID:        int(rc.ID),
			Title:     firstNonEmpty(rc.Title, rc.Name, rc.MenuTitel, DefaultCategoryTitle),
			SortOrder: sortOrder(rc.SortOrder, rc.SortOrderAlt),
			Items:     items,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].SortOrder < out[j].SortOrder })
	return out, nil
}

// CategoryShells returns the embedded categories with titles only and no items.
func CategoryShells(section *MenuSection) []MenuCategory {
	elems, ok := rawArray(section.Menu)
	if !ok {
		return nil
	}
	out := make([]MenuCategory, 0, len(elems))
	for _, el := range elems {
		var rc rawCategory
		if err := json.Unmarshal(el, &rc); err != nil {
			continue
		}
		out = append(out, MenuCategory{
			ID:    int(rc.ID),
			Title: firstNonEmpty(rc.MenuTitel, rc.Title, rc.Name, DefaultCategoryTitle),
			Items: []MenuItem{},
		})
	}
	return out
}

func normalizeItems(raw json.RawMessage) ([]MenuItem, error) {
	elems, ok := rawArray(raw)
	if !ok {
		return []MenuItem{}, nil
	}
	out := make([]MenuItem, 0, len(elems))
	for i, el := range elems {
		var ri rawItem
		if err := json.Unmarshal(el, &ri); err != nil {
			return nil, fmt.Errorf("decode item %d: %w", i, err)
		}
		tags := []string(ri.Tags)
		if tags == nil {
			tags = []string{}
		}
		if ri.Extra != nil && ri.Extra.Vegan && !containsFold(tags, "vegan") {
			tags = append(tags, "vegan")
		}
		out = append(out, MenuItem{
			ID:          int(ri.ID),
			Name:        firstNonEmpty(ri.Name, ri.Title, ri.Text, DefaultItemName),
			Description: firstNonEmpty(ri.Description, ri.Subtext),
			Price:       firstNonEmpty(string(ri.Price), DefaultPrice),
			Tags:        tags,
			SortOrder:   sortOrder(ri.SortOrder, ri.SortOrderAlt),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].SortOrder < out[j].SortOrder })
	return out, nil
}

type rawCategory struct {
	ID           FlexInt         `json:"id"`
	Title        string          `json:"title"`
	Name         string          `json:"name"`
	MenuTitel    string          `json:"menu_titel"`
	SortOrder    *FlexInt        `json:"sortOrder"`
	SortOrderAlt *FlexInt        `json:"sort_order"`
	Items        json.RawMessage `json:"items"`
	MenuBlock    json.RawMessage `json:"menu_block"`
}

func (c rawCategory) itemsRaw() json.RawMessage {
	if _, ok := rawArray(c.Items); ok {
		return c.Items
	}
	return c.MenuBlock
}

type rawItem struct {
	ID           FlexInt  `json:"id"`
	Name         string   `json:"name"`
	Title        string   `json:"title"`
	Text         string   `json:"text"`
	Description  string   `json:"description"`
	Subtext      string   `json:"subtext"`
	Price        Price    `json:"price"`
	Tags         Tags     `json:"tags"`
	SortOrder    *FlexInt `json:"sortOrder"`
	SortOrderAlt *FlexInt `json:"sort_order"`
	Extra        *struct {
		Vegan bool `json:"vegan"`
	} `json:"extra"`
}

// Price decodes a price given either as preformatted string or as decimal number.
type Price string

func (p *Price) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*p = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*p = Price(strings.TrimSpace(s))
		return nil
	}
	f, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return fmt.Errorf("price %s: %w", b, err)
	}
	*p = Price(format.Euro(f))
	return nil
}

// Tags decodes tag lists given as strings or as objects with a name.
type Tags []string

func (t *Tags) UnmarshalJSON(b []byte) error {
	elems, ok := rawArray(b)
	if !ok {
		*t = nil
		return nil
	}
	out := make([]string, 0, len(elems))
	for _, el := range elems {
		var s string
		if err := json.Unmarshal(el, &s); err == nil {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
			continue
		}
		var named struct {
			Name  string `json:"name"`
			Title string `json:"title"`
		}
		if err := json.Unmarshal(el, &named); err == nil {
			if s := firstNonEmpty(named.Name, named.Title); s != "" {
				out = append(out, s)
			}
		}
	}
	*t = out
	return nil
}

func sortOrder(primary, alt *FlexInt) int {
	if primary != nil && *primary != 0 {
		return int(*primary)
	}
	if alt != nil {
		return int(*alt)
	}
	return 0
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func containsFold(list []string, val string) bool {
	for _, item := range list {
		if strings.EqualFold(item, val) {
			return true
		}
	}
	return false
}
