package menu

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"cafefinder.de/web/internal/strapi"
	"cafefinder.de/web/internal/strapi/strapitest"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func fixedClock() time.Time {
	return time.Date(2024, 5, 1, 9, 30, 15, 0, time.UTC)
}

const embeddedCafe = `{"data":[{"id":1,"shop_name":"Bohne & Blatt","slug":"bohne","menu_section":{"id":7,"menu":[
	{"id":1,"menu_titel":"Kaffee","menu_block":[
		{"id":11,"text":"Espresso","price":"2,20 €"},
		{"id":12,"text":"Hafer Latte","subtext":"mit Hafermilch","price":"3,90 €","extra":{"vegan":true}}
	]}
]}}]}`

func TestFetchCafeBySlugEmbeddedMenu(t *testing.T) {
	fake := strapitest.New().List("posts", embeddedCafe)
	s := NewStore(fake, WithClock(fixedClock))

	p := s.FetchCafeBySlug(context.Background(), "bohne")
	require.NotNil(t, p)
	assert.Equal(t, "Bohne & Blatt", p.ShopName)
	assert.Empty(t, s.Err())
	assert.False(t, s.Loading())

	calls := fake.Calls("posts")
	require.Len(t, calls, 1)
	assert.Equal(t, 10, calls[0].Query.PLevel)
	assert.Contains(t, calls[0].Query.Encode(), "filters[slug][$eq]=bohne")

	menu := s.MenuForCafe("bohne")
	require.Len(t, menu, 1)
	assert.Equal(t, "Kaffee", menu[0].Title)
	require.Len(t, menu[0].Items, 2)
	assert.Equal(t, []string{"vegan"}, menu[0].Items[1].Tags)
	assert.Equal(t, "mit Hafermilch", menu[0].Items[1].Description)

	dbg := s.Debug()
	require.NotEmpty(t, dbg.Logs)
	assert.Equal(t, "09:30:15: Lade Café-Daten für slug: bohne", dbg.Logs[0])
	assert.Empty(t, dbg.Errors)
}

func TestFetchCafeBySlugUsesCache(t *testing.T) {
	fake := strapitest.New().List("posts", embeddedCafe)
	s := NewStore(fake)
	ctx := context.Background()

	require.NotNil(t, s.FetchCafeBySlug(ctx, "bohne"))
	require.NotNil(t, s.FetchCafeBySlug(ctx, "bohne"))
	assert.Len(t, fake.Calls("posts"), 1)
	assert.NotNil(t, s.CurrentCafe("bohne"))
	assert.Nil(t, s.CurrentCafe("unbekannt"))
}

func TestFetchCafeBySlugNotFound(t *testing.T) {
	s := NewStore(strapitest.New().List("posts", `{"data":[]}`))
	p := s.FetchCafeBySlug(context.Background(), "nirgends")
	assert.Nil(t, p)
	assert.Equal(t, `Kein Café mit dem Slug "nirgends" gefunden`, s.Err())
	assert.Len(t, s.Debug().Errors, 1)
	assert.Empty(t, s.MenuForCafe("nirgends"))
	assert.True(t, s.Missing("nirgends"))
}

func TestFetchCafeBySlugTransportError(t *testing.T) {
	fake := strapitest.New().OnFind("posts", func(context.Context, strapi.Query) (string, error) {
		return "", errors.New("connection refused")
	})
	s := NewStore(fake)
	assert.Nil(t, s.FetchCafeBySlug(context.Background(), "bohne"))
	assert.Equal(t, "Fehler beim Laden der Café-Daten: connection refused", s.Err())
	assert.False(t, s.Missing("bohne"))

	dbg := s.Debug()
	require.Len(t, dbg.Errors, 2)
	assert.Contains(t, dbg.Errors[1], `Details: {"message":"connection refused"}`)

	s.ClearError()
	s.ClearLogs()
	assert.Empty(t, s.Err())
	assert.Empty(t, s.Debug().Logs)
}

func TestFetchCafeBySlugRetriesAfterMissing(t *testing.T) {
	calls := 0
	fake := strapitest.New().OnFind("posts", func(context.Context, strapi.Query) (string, error) {
		calls++
		if calls == 1 {
			return `{"data":[]}`, nil
		}
		return "", errors.New("connection refused")
	})
	s := NewStore(fake)
	ctx := context.Background()

	assert.Nil(t, s.FetchCafeBySlug(ctx, "bohne"))
	assert.True(t, s.Missing("bohne"))

	assert.Nil(t, s.FetchCafeBySlug(ctx, "bohne"))
	assert.False(t, s.Missing("bohne"))
	assert.Equal(t, "Fehler beim Laden der Café-Daten: connection refused", s.ErrFor("bohne"))
}

func TestErrForKeepsErrorsPerSlug(t *testing.T) {
	fake := strapitest.New().OnFind("posts", func(_ context.Context, q strapi.Query) (string, error) {
		if strings.Contains(q.Encode(), "filters[slug][$eq]=leer") {
			return `{"data":[{"id":2,"shop_name":"Leer","slug":"leer"}]}`, nil
		}
		return embeddedCafe, nil
	})
	s := NewStore(fake)
	ctx := context.Background()

	require.NotNil(t, s.FetchCafeBySlug(ctx, "bohne"))
	require.NotNil(t, s.FetchCafeBySlug(ctx, "leer"))
	require.NotNil(t, s.FetchCafeBySlug(ctx, "bohne"))

	assert.Empty(t, s.ErrFor("bohne"))
	assert.Equal(t, "Keine Menüdaten für dieses Café verfügbar", s.ErrFor("leer"))
	assert.Equal(t, "Keine Menüdaten für dieses Café verfügbar", s.Err())

	s.ClearError()
	assert.Empty(t, s.ErrFor("leer"))
}

func TestFetchCafeBySlugWithoutMenuSection(t *testing.T) {
	s := NewStore(strapitest.New().List("posts", `{"data":[{"id":2,"shop_name":"Leer","slug":"leer"}]}`))
	p := s.FetchCafeBySlug(context.Background(), "leer")
	require.NotNil(t, p)
	assert.Equal(t, "Keine Menüdaten für dieses Café verfügbar", s.Err())
}

func TestFetchCafeBySlugFallsBackToMenuSections(t *testing.T) {
	fake := strapitest.New().
		List("posts", `{"data":[{"id":3,"attributes":{"shop_name":"Röstwerk","slug":"roest","menu_section":{"data":{"id":9,"attributes":{}}}}}]}`).
		One("menu-sections", "9", `{"data":{"id":9,"attributes":{"categories":{"data":[
			{"id":2,"attributes":{"title":"Kuchen","sortOrder":2,"items":{"data":[]}}},
			{"id":1,"attributes":{"title":"Kaffee","sortOrder":1,"items":{"data":[{"id":5,"attributes":{"name":"Filterkaffee","price":2.8}}]}}}
		]}}}}`)
	s := NewStore(fake)

	p := s.FetchCafeBySlug(context.Background(), "roest")
	require.NotNil(t, p)
	assert.Empty(t, s.Err())

	menu := s.MenuForCafe("roest")
	require.Len(t, menu, 2)
	assert.Equal(t, "Kaffee", menu[0].Title)
	assert.Equal(t, "2,80 €", menu[0].Items[0].Price)

	dbg := s.Debug()
	assert.Contains(t, dbg.RawResponses, "menu-sections-9")
	assert.Contains(t, dbg.RawResponses, "processed-menu-sections-9")
	assert.Empty(t, fake.Calls("posts")[0].ID)
	assert.Len(t, fake.Calls("posts"), 1)
}

func TestFetchCafeBySlugFallsBackToPostsMenu(t *testing.T) {
	fake := strapitest.New().
		List("posts", `{"data":[{"id":3,"shop_name":"Röstwerk","slug":"roest","menu_section":{"id":9}}]}`).
		Fail("menu-sections", "9", errors.New("forbidden")).
		One("posts", "9", `{"data":{"id":9,"menu_section":{"id":9,"categories":[{"id":1,"title":"Tee","items":[{"id":1,"name":"Chai"}]}]}}}`)
	s := NewStore(fake)

	require.NotNil(t, s.FetchCafeBySlug(context.Background(), "roest"))
	menu := s.MenuForCafe("roest")
	require.Len(t, menu, 1)
	assert.Equal(t, "Chai", menu[0].Items[0].Name)
	assert.Equal(t, "0,00 €", menu[0].Items[0].Price)
	assert.Contains(t, s.Debug().RawResponses, "posts-menu-9")

	calls := fake.Calls("posts")
	require.Len(t, calls, 2)
	assert.Equal(t, "9", calls[1].ID)
	assert.Contains(t, calls[1].Query.Encode(), "populate[menu_section][populate]=%2A")
}

func TestFetchCafeBySlugShellCategories(t *testing.T) {
	// the embedded menu decodes but its items are unusable, and both remote
	// lookups fail: categories survive with empty item lists
	fake := strapitest.New().
		List("posts", `{"data":[{"id":3,"slug":"halb","menu_section":{"id":4,"menu":[{"id":1,"menu_titel":"Kaffee","menu_block":[{"id":"x"}]}]}}]}`)
	s := NewStore(fake)

	require.NotNil(t, s.FetchCafeBySlug(context.Background(), "halb"))
	menu := s.MenuForCafe("halb")
	require.Len(t, menu, 1)
	assert.Equal(t, "Kaffee", menu[0].Title)
	assert.Empty(t, menu[0].Items)
	assert.Empty(t, s.Err())
}

func TestFetchCafeBySlugNoMenuAnywhere(t *testing.T) {
	fake := strapitest.New().
		List("posts", `{"data":[{"id":3,"slug":"ohne","menu_section":{"id":4}}]}`).
		One("menu-sections", "4", `{"data":{"id":4,"title":"leer"}}`)
	s := NewStore(fake)

	require.NotNil(t, s.FetchCafeBySlug(context.Background(), "ohne"))
	assert.Equal(t, "Keine Menüdaten für dieses Café verfügbar", s.Err())
	assert.Empty(t, s.MenuForCafe("ohne"))
}

func TestToggleItemSelection(t *testing.T) {
	s := NewStore(strapitest.New().List("posts", embeddedCafe))
	require.NotNil(t, s.FetchCafeBySlug(context.Background(), "bohne"))

	assert.False(t, s.IsItemSelected(7, 1, 12))
	assert.True(t, s.ToggleItemSelection(7, 1, 12))
	assert.True(t, s.IsItemSelected(7, 1, 12))
	assert.True(t, s.MenuForCafe("bohne")[0].Items[1].Selected)
	assert.False(t, s.ToggleItemSelection(7, 1, 12))
	assert.False(t, s.IsItemSelected(7, 1, 12))

	assert.True(t, s.ToggleItemSelection(99, 1, 1))
}

func TestConcurrentFetchesAreCoalesced(t *testing.T) {
	release := make(chan struct{})
	var mu sync.Mutex
	hits := 0
	fake := strapitest.New().OnFind("posts", func(ctx context.Context, _ strapi.Query) (string, error) {
		mu.Lock()
		hits++
		mu.Unlock()
		<-release
		return embeddedCafe, nil
	})
	s := NewStore(fake)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NotNil(t, s.FetchCafeBySlug(context.Background(), "bohne"))
		}()
	}
	require.Eventually(t, s.Loading, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, hits)
	assert.False(t, s.Loading())
}
