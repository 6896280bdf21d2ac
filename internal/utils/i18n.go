package utils

// Minimal server-side i18n for fixed keys.
// Email bodies live in the notify templates.

var translations = map[string]map[string]string{
	"en": {
		"health.ok":          "ok",
		"health.db_down":     "database unavailable",
		"error.unauthorized": "unauthorized",
		"error.internal":     "internal server error",
	},
	"bs": {
		"health.ok":          "u redu",
		"health.db_down":     "baza podataka nije dostupna",
		"error.unauthorized": "neovlašten pristup",
		"error.internal":     "interna greška servera",
	},
}

// T returns the translated string for key in locale; falls back to English.
func T(locale, key string) string {
	if m, ok := translations[locale]; ok {
		if v, ok := m[key]; ok {
			return v
		}
	}
	if v, ok := translations["en"][key]; ok {
		return v
	}
	return key
}
