package pages

import "time"

// DrinkSlugs lists the built-in drink pages in menu order.
var DrinkSlugs = []string{"espresso", "cappuccino", "latte", "americano", "macchiato"}

type drink struct {
	title   string
	summary string
	body    string
}

var drinksUpdated = time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC)

var builtinDrinks = map[string]map[string]drink{
	"de": {
		"espresso": {
			title:   "Espresso",
			summary: "Die konzentrierte Basis fast aller Kaffeespezialitäten.",
			body: `Ein Espresso entsteht, wenn heißes Wasser mit rund 9 bar Druck durch fein gemahlenen Kaffee gepresst wird.

## Worauf es ankommt

- 7 bis 9 Gramm Kaffee für einen einfachen Shot
- 25 bis 30 Sekunden Durchlaufzeit
- eine dichte, haselnussbraune Crema

Guter Espresso schmeckt ausgewogen zwischen Süße, Säure und Bitterkeit.`,
		},
		"cappuccino": {
			title:   "Cappuccino",
			summary: "Espresso mit heißer Milch und feinporigem Milchschaum.",
			body: `Der Cappuccino besteht zu etwa gleichen Teilen aus Espresso, heißer Milch und Milchschaum.

## Typisch

- 150 bis 180 ml in der Tasse
- samtiger Schaum, der Latte Art trägt
- kräftiger Kaffeegeschmack trotz Milch`,
		},
		"latte": {
			title:   "Latte",
			summary: "Viel Milch, wenig Schaum und ein milder Espresso.",
			body: `Der Caffè Latte wird im Glas oder in großen Tassen serviert. Auf einen Espresso kommen bis zu 250 ml heiße Milch und eine dünne Schaumschicht.

Wer es süßer mag, bestellt ihn mit Sirup.`,
		},
		"americano": {
			title:   "Americano",
			summary: "Espresso, mit heißem Wasser verlängert.",
			body: `Für einen Americano wird ein Espresso mit heißem Wasser aufgegossen. Das Ergebnis ist leichter als ein Espresso, behält aber dessen Aromen.

Im Unterschied zum Filterkaffee schwimmt oft noch ein Rest Crema auf der Oberfläche.`,
		},
		"macchiato": {
			title:   "Macchiato",
			summary: "Espresso, „befleckt“ mit einem Klecks Milchschaum.",
			body:    `Der Espresso Macchiato ist ein Espresso mit einem kleinen Löffel Milchschaum. Nicht zu verwechseln mit dem Latte Macchiato, bei dem der Espresso in ein Glas heiße Milch gegossen wird.`,
		},
	},
	"en": {
		"espresso": {
			title:   "Espresso",
			summary: "The concentrated base of almost every coffee drink.",
			body: `Espresso is brewed by forcing hot water through finely ground coffee at about 9 bar.

## What matters

- 7 to 9 grams of coffee for a single shot
- 25 to 30 seconds extraction time
- a dense, hazelnut coloured crema`,
		},
		"cappuccino": {
			title:   "Cappuccino",
			summary: "Espresso with steamed milk and fine microfoam.",
			body:    `A cappuccino combines espresso, steamed milk and milk foam in roughly equal parts, served in a 150 to 180 ml cup.`,
		},
		"latte": {
			title:   "Latte",
			summary: "Lots of milk, a little foam and a mellow espresso.",
			body:    `A caffè latte pairs one shot of espresso with up to 250 ml of steamed milk and a thin layer of foam.`,
		},
		"americano": {
			title:   "Americano",
			summary: "Espresso lengthened with hot water.",
			body:    `An americano is espresso topped up with hot water. It is lighter than espresso but keeps its aromas.`,
		},
		"macchiato": {
			title:   "Macchiato",
			summary: "Espresso marked with a spoonful of foam.",
			body:    `An espresso macchiato is a shot of espresso with a dollop of milk foam on top.`,
		},
	},
}

func builtinDrink(slug, lang string) (Page, bool) {
	for _, candidate := range langPriority(lang) {
		d, ok := builtinDrinks[candidate][slug]
		if !ok {
			continue
		}
		return Page{
			Kind:      KindDrink,
			Slug:      slug,
			Lang:      candidate,
			Title:     d.title,
			Summary:   d.summary,
			Body:      d.body,
			Format:    formatMarkdown,
			UpdatedAt: drinksUpdated,
			SEO:       SEO{Description: d.summary},
			Source:    "builtin",
		}, true
	}
	return Page{}, false
}
