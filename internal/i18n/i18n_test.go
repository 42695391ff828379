package i18n

import "testing"

func load(t *testing.T) *Bundle {
	t.Helper()
	b, err := Load("../../locales", "de", []string{"de", "en"})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	return b
}

func TestResolveHonorsQValues(t *testing.T) {
	b := load(t)
	if got := b.Resolve("de;q=0.8, en;q=0.9"); got != "en" {
		t.Fatalf("expected en, got %s", got)
	}
	if got := b.Resolve("en-GB,en;q=0.9"); got != "en" {
		t.Fatalf("expected en for en-GB, got %s", got)
	}
}

func TestResolveFallsBack(t *testing.T) {
	b := load(t)
	for _, header := range []string{"", "ja", "not a header;;"} {
		if got := b.Resolve(header); got != "de" {
			t.Errorf("Resolve(%q) = %s, want de", header, got)
		}
	}
}

func TestTranslateFallsBackToDefaultLocaleAndKey(t *testing.T) {
	b := load(t)
	if got := b.T("en", "nav.home"); got != "Home" {
		t.Fatalf("en nav.home = %q", got)
	}
	if got := b.T("fr", "nav.home"); got != "Startseite" {
		t.Fatalf("fr should fall back to de, got %q", got)
	}
	if got := b.T("de", "missing.key"); got != "missing.key" {
		t.Fatalf("missing key should echo, got %q", got)
	}
	if got := b.T("de", "menu.items", 3); got != "3 Artikel" {
		t.Fatalf("formatted message = %q", got)
	}
}

func TestNormalize(t *testing.T) {
	b := load(t)
	if l, ok := b.Normalize("EN-us"); !ok || l != "en" {
		t.Fatalf("Normalize(EN-us) = %q %v", l, ok)
	}
	if _, ok := b.Normalize("fr"); ok {
		t.Fatal("fr should not be supported")
	}
}
