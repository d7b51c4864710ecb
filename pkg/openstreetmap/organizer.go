package openstreetmap

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Club type words and abbreviations found in Swedish orienteering club names.
var clubWords = map[string]bool{
	"ok": true, "ol": true, "if": true, "ifk": true, "ik": true, "sk": true, "sok": true,
	"soik": true, "fk": true, "gif": true, "aik": true, "bk": true, "ois": true, "ski": true,
	"orienteringsklubb": true, "orienteringsklubben": true, "idrottsförening": true,
	"idrottsklubb": true, "sportklubb": true, "skidklubb": true, "friluftsklubb": true,
	"orientering": true, "och": true, "&": true,
}

// Club names that do not mention their home town.
var knownClubs = map[string]string{
	"ok linné":          "Uppsala",
	"ok ravinen":        "Nacka",
	"järla orientering": "Nacka",
	"ok tisaren":        "Örebro",
	"ok klyftamo":       "Karlskoga",
	"snättringe sk":     "Huddinge",
	"hellas":            "Stockholm",
	"sävedalens aik":    "Partille",
	"ok pan":            "Kristianstad",
	"ok gipen":          "Hudiksvall",
}

// CityFromOrganizer guesses the home town of an orienteering club from its name,
// e.g. "Lunds OK" -> "Lund", "IFK Göteborg Orientering" -> "Göteborg". It returns
// the organizer unchanged when nothing better is found.
func CityFromOrganizer(organizer string) string {
	lower := strings.ToLower(strings.TrimSpace(organizer))
	for club, city := range knownClubs {
		if strings.Contains(lower, club) {
			return city
		}
	}

	words := strings.FieldsFunc(organizer, func(r rune) bool {
		return unicode.IsSpace(r) || r == '-' || r == ','
	})
	best := ""
	for i, w := range words {
		if clubWords[strings.ToLower(w)] || !isCapitalized(w) || hasDigit(w) {
			continue
		}
		// Genitive before a club word: "Lunds OK", "Malungs OK Skogsmårdarna".
		if next := i + 1; next < len(words) && clubWords[strings.ToLower(words[next])] {
			w = trimGenitive(w)
		}
		if best == "" {
			best = w
		}
	}
	if best == "" {
		return organizer
	}
	return best
}

func trimGenitive(w string) string {
	if len([]rune(w)) > 4 && strings.HasSuffix(w, "s") && !strings.HasSuffix(w, "ss") {
		return strings.TrimSuffix(w, "s")
	}
	return w
}

func isCapitalized(s string) bool {
	r, _ := utf8.DecodeRuneInString(s)
	return unicode.IsUpper(r)
}

func hasDigit(s string) bool {
	return strings.IndexFunc(s, unicode.IsDigit) >= 0
}
