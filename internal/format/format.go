package format

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// FmtCurrency formats amount in minor units for basic currencies.
// Example: FmtCurrency(450, "EUR", "de") => "4,50 €"
func FmtCurrency(minor int64, currency, lang string) string {
	currency = strings.ToUpper(currency)
	neg := minor < 0
	if neg {
		minor = -minor
	}
	major := minor / 100
	cents := minor % 100
	sign := ""
	if neg {
		sign = "-"
	}
	switch currency {
	case "EUR":
		if strings.ToLower(lang) == "en" {
			return sign + "€" + thousandSep(major, ",") + "." + fmt.Sprintf("%02d", cents)
		}
		return sign + thousandSep(major, ".") + "," + fmt.Sprintf("%02d", cents) + " €"
	case "USD":
		return sign + "$" + thousandSep(major, ",") + "." + fmt.Sprintf("%02d", cents)
	default:
		// generic minor units
		return fmt.Sprintf("%s %s%s", currency, sign, thousandSep(minor, ","))
	}
}

// Euro formats a decimal euro amount as German price string, e.g. 4.5 => "4,50 €".
func Euro(amount float64) string {
	return FmtCurrency(int64(math.Round(amount*100)), "EUR", "de")
}

func thousandSep(n int64, sep string) string {
	s := fmt.Sprintf("%d", n)
	var out strings.Builder
	for i, c := range s {
		if i != 0 && (len(s)-i)%3 == 0 {
			out.WriteString(sep)
		}
		out.WriteRune(c)
	}
	return out.String()
}

// FmtDate formats time in a locale-friendly short form.
func FmtDate(t time.Time, lang string) string {
	switch strings.ToLower(lang) {
	case "de":
		return t.Format("02.01.2006")
	default:
		return t.Format("Jan 2, 2006")
	}
}
