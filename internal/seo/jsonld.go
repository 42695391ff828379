package seo

import (
	"encoding/json"

	"cafefinder.de/web/internal/cafe"
)

// JSON marshals v to a compact JSON string. It returns an empty string on error.
func JSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

// WebSite returns a minimal WebSite schema with optional SearchAction.
func WebSite(name, url, searchActionURL string) map[string]any {
	m := map[string]any{
		"@context": "https://schema.org",
		"@type":    "WebSite",
		"name":     name,
	}
	if url != "" {
		m["url"] = url
	}
	if searchActionURL != "" {
		m["potentialAction"] = map[string]any{
			"@type":       "SearchAction",
			"target":      searchActionURL + "{search_term_string}",
			"query-input": "required name=search_term_string",
		}
	}
	return m
}

// BreadcrumbItem maps name and absolute item URL.
type BreadcrumbItem struct {
	Name string
	Item string
}

// BreadcrumbList builds schema.org BreadcrumbList.
func BreadcrumbList(items []BreadcrumbItem) map[string]any {
	el := make([]map[string]any, 0, len(items))
	for i, it := range items {
		el = append(el, map[string]any{
			"@type":    "ListItem",
			"position": i + 1,
			"name":     it.Name,
			"item":     it.Item,
		})
	}
	return map[string]any{
		"@context":        "https://schema.org",
		"@type":           "BreadcrumbList",
		"itemListElement": el,
	}
}

// CafeOrCoffeeShop describes a café. menuURL links the Menu schema when set.
func CafeOrCoffeeShop(p cafe.Post, url, imageURL, menuURL string) map[string]any {
	m := map[string]any{
		"@context": "https://schema.org",
		"@type":    "CafeOrCoffeeShop",
		"name":     p.ShopName,
	}
	if url != "" {
		m["url"] = url
	}
	if imageURL != "" {
		m["image"] = imageURL
	}
	if menuURL != "" {
		m["hasMenu"] = menuURL
	}
	if a := p.Address; a != nil {
		addr := map[string]any{
			"@type":          "PostalAddress",
			"addressCountry": "DE",
		}
		if a.Street != "" {
			addr["streetAddress"] = a.Street
		}
		if a.City != "" {
			addr["addressLocality"] = a.City
		}
		if a.ZipCode != "" {
			addr["postalCode"] = a.ZipCode.String()
		}
		m["address"] = addr
	}
	return m
}

// Menu describes a café menu with its sections and items.
func Menu(name, url string, categories []cafe.MenuCategory) map[string]any {
	sections := make([]map[string]any, 0, len(categories))
	for _, c := range categories {
		items := make([]map[string]any, 0, len(c.Items))
		for _, it := range c.Items {
			item := map[string]any{
				"@type": "MenuItem",
				"name":  it.Name,
				"offers": map[string]any{
					"@type":         "Offer",
					"price":         it.Price,
					"priceCurrency": "EUR",
				},
			}
			if it.Description != "" {
				item["description"] = it.Description
			}
			for _, tag := range it.Tags {
				if tag == "vegan" {
					item["suitableForDiet"] = "https://schema.org/VeganDiet"
				}
			}
			items = append(items, item)
		}
		sections = append(sections, map[string]any{
			"@type":       "MenuSection",
			"name":        c.Title,
			"hasMenuItem": items,
		})
	}
	m := map[string]any{
		"@context":       "https://schema.org",
		"@type":          "Menu",
		"name":           name,
		"hasMenuSection": sections,
	}
	if url != "" {
		m["url"] = url
	}
	return m
}
