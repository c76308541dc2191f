package payload

import "strings"

// Locale selects the language of display fallbacks.
type Locale string

const (
	LocaleEN Locale = "en"
	LocaleFR Locale = "fr"
	LocaleDE Locale = "de"
)

// DefaultLocale matches the deployment the workflow engine produces for.
const DefaultLocale = LocaleFR

type messages struct {
	noSummary    string
	extractError string
}

var catalog = map[Locale]messages{
	LocaleEN: {
		noSummary:    "New incoming call - Summary not available",
		extractError: "New incoming call - Error extracting summary",
	},
	LocaleFR: {
		noSummary:    "Nouvel appel entrant - Résumé non disponible",
		extractError: "Nouvel appel entrant - Erreur lors de l'extraction du résumé",
	},
	LocaleDE: {
		noSummary:    "Neuer eingehender Anruf - Zusammenfassung nicht verfügbar",
		extractError: "Neuer eingehender Anruf - Fehler beim Extrahieren der Zusammenfassung",
	},
}

func (l Locale) messages() messages {
	if m, ok := catalog[l]; ok {
		return m
	}
	return catalog[DefaultLocale]
}

// NoSummary is the "no summary available" constant for l.
func NoSummary(l Locale) string { return l.messages().noSummary }

// ExtractionError is the "error extracting summary" constant for l.
func ExtractionError(l Locale) string { return l.messages().extractError }

// ParseLocale picks the first supported language from an Accept-Language header value.
// q-values are ignored; header order is taken as preference order.
func ParseLocale(acceptLanguage string, fallback Locale) Locale {
	for _, part := range strings.Split(acceptLanguage, ",") {
		tag := strings.TrimSpace(part)
		if i := strings.IndexByte(tag, ';'); i >= 0 {
			tag = tag[:i]
		}
		if i := strings.IndexAny(tag, "-_"); i >= 0 {
			tag = tag[:i]
		}
		l := Locale(strings.ToLower(tag))
		if _, ok := catalog[l]; ok {
			return l
		}
	}
	if _, ok := catalog[fallback]; ok {
		return fallback
	}
	return DefaultLocale
}
