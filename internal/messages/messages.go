// Package messages holds the user-facing strings printed outside the log.
//
// Strings are looked up in an x/text catalog keyed by their English text;
// the locale comes from LC_ALL, LC_MESSAGES or LANG in that order.
package messages

import (
	"os"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// Message keys. The key doubles as the English text.
const (
	AlreadyRunning    = "Another instance is already running. Leaving..."
	Version           = "%s version %s\n"
	BusUnavailable    = "Unable to connect to the session bus: %v"
	ConfigUnavailable = "Unable to contact the settings server: %v"
	InvalidConfig     = "Invalid configuration: %v"
	SampleWritten     = "Sample configuration written to %s\n"
)

var supported = []language.Tag{language.English, language.German, language.French}

var translations = map[language.Tag]map[string]string{
	language.German: {
		AlreadyRunning:    "Eine andere Instanz läuft bereits. Wird beendet...",
		Version:           "%s Version %s\n",
		BusUnavailable:    "Verbindung zum Sitzungsbus nicht möglich: %v",
		ConfigUnavailable: "Der Einstellungsserver ist nicht erreichbar: %v",
		InvalidConfig:     "Ungültige Konfiguration: %v",
		SampleWritten:     "Beispielkonfiguration nach %s geschrieben\n",
	},
	language.French: {
		AlreadyRunning:    "Une autre instance est déjà en cours d'exécution. Abandon...",
		Version:           "%s version %s\n",
		BusUnavailable:    "Impossible de se connecter au bus de session : %v",
		ConfigUnavailable: "Impossible de contacter le serveur de paramètres : %v",
		InvalidConfig:     "Configuration invalide : %v",
		SampleWritten:     "Exemple de configuration écrit dans %s\n",
	},
}

var (
	matcher = language.NewMatcher(supported)
	strs    = buildCatalog()
)

func buildCatalog() catalog.Catalog {
	b := catalog.NewBuilder(catalog.Fallback(language.English))
	for _, key := range []string{AlreadyRunning, Version, BusUnavailable, ConfigUnavailable, InvalidConfig, SampleWritten} {
		_ = b.SetString(language.English, key, key)
	}
	for tag, set := range translations {
		for key, msg := range set {
			_ = b.SetString(tag, key, msg)
		}
	}
	return b
}

// Locale resolves the message language from the environment.
func Locale() language.Tag {
	for _, name := range []string{"LC_ALL", "LC_MESSAGES", "LANG"} {
		if value := strings.TrimSpace(os.Getenv(name)); value != "" {
			return Match(value)
		}
	}
	return language.English
}

// Match maps a POSIX locale name such as de_DE.UTF-8 to a supported tag.
func Match(locale string) language.Tag {
	if i := strings.IndexAny(locale, ".@"); i >= 0 {
		locale = locale[:i]
	}
	if locale == "" || locale == "C" || locale == "POSIX" {
		return language.English
	}
	tag, err := language.Parse(strings.ReplaceAll(locale, "_", "-"))
	if err != nil {
		return language.English
	}
	_, idx, confidence := matcher.Match(tag)
	if confidence == language.No {
		return language.English
	}
	return supported[idx]
}

// NewPrinter returns a printer for tag backed by the message catalog.
func NewPrinter(tag language.Tag) *message.Printer {
	return message.NewPrinter(tag, message.Catalog(strs))
}

// Printer returns a printer for the environment locale.
func Printer() *message.Printer {
	return NewPrinter(Locale())
}
