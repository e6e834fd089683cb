package messages

import (
	"testing"

	"golang.org/x/text/language"
)

func TestMatch(t *testing.T) {
	tests := []struct {
		locale string
		want   language.Tag
	}{
		{"de_DE.UTF-8", language.German},
		{"de_AT", language.German},
		{"fr_FR@euro", language.French},
		{"en_GB.UTF-8", language.English},
		{"C", language.English},
		{"POSIX", language.English},
		{"ja_JP.UTF-8", language.English},
		{"not a locale", language.English},
	}
	for _, tt := range tests {
		t.Run(tt.locale, func(t *testing.T) {
			if got := Match(tt.locale); got != tt.want {
				t.Fatalf("Match(%q) = %s, want %s", tt.locale, got, tt.want)
			}
		})
	}
}

func TestLocalePrecedence(t *testing.T) {
	t.Setenv("LANG", "fr_FR.UTF-8")
	t.Setenv("LC_MESSAGES", "")
	t.Setenv("LC_ALL", "")
	if got := Locale(); got != language.French {
		t.Fatalf("expected LANG to apply, got %s", got)
	}
	t.Setenv("LC_MESSAGES", "de_DE.UTF-8")
	if got := Locale(); got != language.German {
		t.Fatalf("expected LC_MESSAGES to win over LANG, got %s", got)
	}
	t.Setenv("LC_ALL", "C")
	if got := Locale(); got != language.English {
		t.Fatalf("expected LC_ALL to win, got %s", got)
	}
}

func TestPrinterTranslates(t *testing.T) {
	if got := NewPrinter(language.German).Sprintf(AlreadyRunning); got != translations[language.German][AlreadyRunning] {
		t.Fatalf("unexpected German text %q", got)
	}
	if got := NewPrinter(language.English).Sprintf(AlreadyRunning); got != AlreadyRunning {
		t.Fatalf("unexpected English text %q", got)
	}
	if got := NewPrinter(language.French).Sprintf(Version, "settingsd", "1.0"); got != "settingsd version 1.0\n" {
		t.Fatalf("unexpected French version line %q", got)
	}
}

func TestEveryKeyTranslated(t *testing.T) {
	keys := []string{AlreadyRunning, Version, BusUnavailable, ConfigUnavailable, InvalidConfig, SampleWritten}
	for tag, set := range translations {
		for _, key := range keys {
			if set[key] == "" {
				t.Errorf("%s: missing translation for %q", tag, key)
			}
		}
	}
}
