package strapi

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// Filters is a nested filter tree rendered in bracket notation,
// e.g. filters[address][city][$eq]=Köln.
type Filters map[string]any

// Eq adds an equality filter on the given field path and returns the tree.
func (f Filters) Eq(value string, path ...string) Filters {
	if f == nil {
		f = Filters{}
	}
	if len(path) == 0 {
		return f
	}
	node := map[string]any(f)
	for _, seg := range path {
		next, ok := node[seg].(map[string]any)
		if !ok {
			if typed, isFilters := node[seg].(Filters); isFilters {
				next = typed
			} else {
				next = map[string]any{}
				node[seg] = next
			}
		}
		node = next
	}
	node["$eq"] = value
	return f
}

// Query holds the parameters of a collection request.
//
// Populate accepts "*", a list of relation names, or a nested map
// (e.g. {"address": {"fields": []string{"city"}}}).
type Query struct {
	Filters  Filters
	Populate any
	Fields   []string
	Sort     []string
	PLevel   int
	Locale   string
	Page     int
	PageSize int
}

// Encode renders the query string. Keys keep their brackets unescaped; values
// are escaped. Output order is deterministic.
func (q Query) Encode() string {
	var pairs []string
	add := func(key, value string) {
		pairs = append(pairs, key+"="+url.QueryEscape(value))
	}
	if len(q.Filters) > 0 {
		encodeNested("filters", map[string]any(q.Filters), add)
	}
	switch p := q.Populate.(type) {
	case nil:
	case string:
		if p != "" {
			add("populate", p)
		}
	default:
		encodeNested("populate", p, add)
	}
	for i, f := range q.Fields {
		add(fmt.Sprintf("fields[%d]", i), f)
	}
	for i, s := range q.Sort {
		add(fmt.Sprintf("sort[%d]", i), s)
	}
	if q.PLevel > 0 {
		add("pLevel", strconv.Itoa(q.PLevel))
	}
	if q.Locale != "" {
		add("locale", q.Locale)
	}
	if q.Page > 0 {
		add("pagination[page]", strconv.Itoa(q.Page))
	}
	if q.PageSize > 0 {
		add("pagination[pageSize]", strconv.Itoa(q.PageSize))
	}
	return strings.Join(pairs, "&")
}

func encodeNested(prefix string, v any, add func(key, value string)) {
	switch t := v.(type) {
	case Filters:
		encodeNested(prefix, map[string]any(t), add)
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			encodeNested(prefix+"["+k+"]", t[k], add)
		}
	case []string:
		for i, s := range t {
			add(fmt.Sprintf("%s[%d]", prefix, i), s)
		}
	case []any:
		for i, el := range t {
			encodeNested(fmt.Sprintf("%s[%d]", prefix, i), el, add)
		}
	case string:
		add(prefix, t)
	case bool:
		add(prefix, strconv.FormatBool(t))
	case int:
		add(prefix, strconv.Itoa(t))
	case nil:
	default:
		add(prefix, fmt.Sprint(t))
	}
}
