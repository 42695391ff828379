package cafe

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const flatMenu = `{"categories":[
	{"id":2,"title":"Kuchen","sortOrder":2,"items":[{"id":21,"name":"Käsekuchen","price":3.5}]},
	{"id":1,"title":"Kaffee","sortOrder":1,"items":[
		{"id":12,"name":"Cappuccino","price":"3,80 €","sortOrder":2,"tags":[{"name":"vegan"}]},
		{"id":11,"name":"Espresso","price":2.2,"sortOrder":1}
	]}
]}`

const nestedMenu = `{"data":{"id":9,"attributes":{"categories":{"data":[
	{"id":2,"attributes":{"title":"Kuchen","sortOrder":2,"items":{"data":[{"id":21,"attributes":{"name":"Käsekuchen","price":3.5}}]}}},
	{"id":1,"attributes":{"title":"Kaffee","sortOrder":1,"items":{"data":[
		{"id":12,"attributes":{"name":"Cappuccino","price":"3,80 €","sortOrder":2,"tags":{"data":[{"id":4,"attributes":{"name":"vegan"}}]}}},
		{"id":11,"attributes":{"name":"Espresso","price":2.2,"sortOrder":1}}
	]}}}
]}}}}`

func TestExtractMenuFlatAndNestedAgree(t *testing.T) {
	flat, ok, err := ExtractMenu(json.RawMessage(flatMenu))
	require.NoError(t, err)
	require.True(t, ok)

	nested, ok, err := ExtractMenu(json.RawMessage(nestedMenu))
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, flat, nested)
	require.Len(t, flat, 2)
	assert.Equal(t, "Kaffee", flat[0].Title)
	assert.Equal(t, "Kuchen", flat[1].Title)
	require.Len(t, flat[0].Items, 2)
	assert.Equal(t, "Espresso", flat[0].Items[0].Name)
	assert.Equal(t, "2,20 €", flat[0].Items[0].Price)
	assert.Equal(t, []string{"vegan"}, flat[0].Items[1].Tags)
	assert.Equal(t, "3,50 €", flat[1].Items[0].Price)
}

func TestExtractMenuMissingCategories(t *testing.T) {
	cats, ok, err := ExtractMenu(json.RawMessage(`{"id":1,"title":"leer"}`))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, cats)
}

func TestExtractMenuFallsBackToMenuField(t *testing.T) {
	cats, ok, err := ExtractMenu(json.RawMessage(`{"menu":[{"id":1,"menu_titel":"Heißgetränke","menu_block":[{"id":1,"text":"Tee"}]}]}`))
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, cats, 1)
	assert.Equal(t, "Heißgetränke", cats[0].Title)
	assert.Equal(t, "Tee", cats[0].Items[0].Name)
}

func TestNormalizeEmbeddedMenuDefaults(t *testing.T) {
	section := &MenuSection{ID: 4, Menu: json.RawMessage(`[
		{"id":1,"menu_titel":"Heißgetränke","menu_block":[
			{"id":1,"text":"Flat White","subtext":"doppelt","price":"4,10 €","extra":{"vegan":true}},
			{"id":2}
		]},
		{"id":2}
	]`)}
	cats, err := NormalizeEmbeddedMenu(section)
	require.NoError(t, err)
	require.Len(t, cats, 2)

	assert.Equal(t, "Heißgetränke", cats[0].Title)
	first := cats[0].Items[0]
	assert.Equal(t, "Flat White", first.Name)
	assert.Equal(t, "doppelt", first.Description)
	assert.Equal(t, "4,10 €", first.Price)
	assert.Equal(t, []string{"vegan"}, first.Tags)

	second := cats[0].Items[1]
	assert.Equal(t, DefaultItemName, second.Name)
	assert.Equal(t, DefaultPrice, second.Price)
	assert.Empty(t, second.Tags)

	assert.Equal(t, DefaultCategoryTitle, cats[1].Title)
	assert.Empty(t, cats[1].Items)
}

func TestNormalizeEmbeddedMenuRequiresArray(t *testing.T) {
	_, err := NormalizeEmbeddedMenu(&MenuSection{ID: 1})
	assert.ErrorIs(t, err, ErrNoMenu)
	_, err = NormalizeEmbeddedMenu(nil)
	assert.ErrorIs(t, err, ErrNoMenu)
}

func TestSortIsStable(t *testing.T) {
	cats, err := NormalizeCategories(json.RawMessage(`[
		{"title":"B"},{"title":"A","sort_order":-1},{"title":"C"}
	]`))
	require.NoError(t, err)
	titles := []string{cats[0].Title, cats[1].Title, cats[2].Title}
	assert.Equal(t, []string{"A", "B", "C"}, titles)
}

func TestCategoryShells(t *testing.T) {
	shells := CategoryShells(&MenuSection{ID: 1, Menu: json.RawMessage(`[{"id":5,"menu_titel":"Snacks","menu_block":[{"text":"x"}]}]`)})
	require.Len(t, shells, 1)
	assert.Equal(t, "Snacks", shells[0].Title)
	assert.Empty(t, shells[0].Items)
	assert.Equal(t, 2, CountItems([]MenuCategory{{Items: make([]MenuItem, 2)}}))
}
