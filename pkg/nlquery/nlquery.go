// Package nlquery turns a free-text search into filters by spotting known keywords.
//
// Matching is plain case-insensitive substring containment with no word boundaries,
// so a keyword inside a longer word still counts ("ultralång" also yields Lång).
// Every hit is kept; there is no mutual exclusion between values of one dimension.
package nlquery

import (
	"sort"
	"strings"
	"time"

	"github.com/timoknapp/orienteering-finder/pkg/models"
)

var disciplineKeywords = map[string]models.Discipline{
	"sprint":     models.Sprint,
	"medel":      models.Medel,
	"lång":       models.Lang,
	"natt":       models.Natt,
	"stafett":    models.Stafett,
	"kavle":      models.Stafett,
	"ultralång":  models.Ultralang,
	"ultra long": models.Ultralang,
	"middle":     models.Medel,
	"long":       models.Lang,
	"night":      models.Natt,
	"relay":      models.Stafett,
}

var levelKeywords = map[string]models.Level{
	"klubb":          models.Klubb,
	"krets":          models.Krets,
	"distrikt":       models.Distrikt,
	"nationell":      models.Nationell,
	"internationell": models.Internationell,
	"club":           models.Klubb,
	"national":       models.Nationell,
	"international":  models.Internationell,
}

// Level keywords too short to match inside other words; matched as whole words only.
var levelWords = map[string]models.Level{
	"sm": models.Nationell,
	"vm": models.Internationell,
}

var typeKeywords = map[string]string{
	"individuell": "Individuell",
	"lagtävling":  "Lagtävling",
	"motion":      "Motion",
}

var branchKeywords = map[string]string{
	"fotorientering":        "Fotorientering",
	"skidorientering":       "Skidorientering",
	"mtbo":                  "MTBO",
	"cykelorientering":      "MTBO",
	"precisionsorientering": "Precisionsorientering",
	"preo":                  "Precisionsorientering",
}

// Words dropped from the residual query when they stand alone.
var stopwords = map[string]bool{
	"tävling": true, "tävlingar": true, "tävlingen": true, "orientering": true,
	"i": true, "på": true, "nära": true, "runt": true, "vid": true, "kring": true,
	"och": true, "för": true, "med": true, "alla": true, "visa": true, "hitta": true,
	"competition": true, "competitions": true, "in": true, "near": true, "around": true,
	"the": true, "and": true, "show": true, "find": true,
}

type datePhrase struct {
	phrases []string
	rng     func(today models.Date) models.DateRange
}

var datePhrases = []datePhrase{
	{
		phrases: []string{"kommande 30 dagarna", "kommande 30 dagar", "nästa 30 dagar", "närmaste 30 dagarna", "next 30 days"},
		rng: func(today models.Date) models.DateRange {
			to := today.AddDays(30)
			return models.DateRange{From: &today, To: &to}
		},
	},
	{
		phrases: []string{"nästa vecka", "next week"},
		rng: func(today models.Date) models.DateRange {
			from := startOfWeek(today).AddDays(7)
			to := from.AddDays(6)
			return models.DateRange{From: &from, To: &to}
		},
	},
	{
		phrases: []string{"denna vecka", "den här veckan", "this week"},
		rng: func(today models.Date) models.DateRange {
			from := startOfWeek(today)
			to := from.AddDays(6)
			return models.DateRange{From: &from, To: &to}
		},
	},
	{
		phrases: []string{"i helgen", "denna helg", "this weekend"},
		rng: func(today models.Date) models.DateRange {
			from := startOfWeek(today).AddDays(5)
			if from.Before(today) {
				from = today
			}
			to := startOfWeek(today).AddDays(6)
			return models.DateRange{From: &from, To: &to}
		},
	},
	{
		phrases: []string{"nästa månad", "next month"},
		rng: func(today models.Date) models.DateRange {
			from := models.NewDate(today.Year(), today.Month()+1, 1)
			to := models.NewDate(from.Year(), from.Month()+1, 1).AddDays(-1)
			return models.DateRange{From: &from, To: &to}
		},
	},
	{
		phrases: []string{"denna månad", "den här månaden", "this month"},
		rng: func(today models.Date) models.DateRange {
			to := models.NewDate(today.Year(), today.Month()+1, 1).AddDays(-1)
			return models.DateRange{From: &today, To: &to}
		},
	},
}

func startOfWeek(d models.Date) models.Date {
	offset := (int(d.Weekday()) + 6) % 7
	return d.AddDays(-offset)
}

// Extract builds filters from text. Relative dates resolve against now's calendar date.
// The residual search query is the lower-cased text with every matched keyword,
// date phrase and stopword removed. Extraction repeats until the residual holds no
// vocabulary, so running Extract on its own residual finds nothing new.
func Extract(text string, now time.Time) models.SearchFilters {
	var f models.SearchFilters
	residual := strings.ToLower(text)
	for {
		next, found := extractPass(residual, models.DateOf(now), &f)
		residual = next
		if !found {
			break
		}
	}
	f.SearchQuery = residual
	return f
}

func extractPass(text string, today models.Date, f *models.SearchFilters) (string, bool) {
	var matched []string
	for _, p := range datePhrases {
		for _, phrase := range p.phrases {
			if strings.Contains(text, phrase) {
				if f.DateRange == nil {
					rng := p.rng(today)
					f.DateRange = &rng
				}
				matched = append(matched, phrase)
			}
		}
	}
	// Date phrases go first so "next week" is not also read as a keyword.
	text = strip(text, matched)
	found := len(matched) > 0
	matched = matched[:0]

	for _, kw := range sortedKeys(disciplineKeywords) {
		if strings.Contains(text, kw) {
			f.Disciplines = appendUnique(f.Disciplines, disciplineKeywords[kw])
			matched = append(matched, kw)
		}
	}
	for _, kw := range sortedKeys(levelKeywords) {
		if strings.Contains(text, kw) {
			f.Levels = appendUnique(f.Levels, levelKeywords[kw])
			matched = append(matched, kw)
		}
	}
	for _, kw := range sortedKeys(typeKeywords) {
		if strings.Contains(text, kw) {
			f.Types = appendUnique(f.Types, typeKeywords[kw])
			matched = append(matched, kw)
		}
	}
	for _, kw := range sortedKeys(branchKeywords) {
		if strings.Contains(text, kw) {
			f.Branches = appendUnique(f.Branches, branchKeywords[kw])
			matched = append(matched, kw)
		}
	}
	text = strip(text, matched)
	found = found || len(matched) > 0

	var kept []string
	for _, w := range strings.Fields(text) {
		bare := strings.Trim(w, ".,!?")
		if lvl, ok := levelWords[bare]; ok {
			f.Levels = appendUnique(f.Levels, lvl)
			found = true
			continue
		}
		if stopwords[bare] {
			// Dropping a word can bring two fragments together, so look again.
			found = true
			continue
		}
		kept = append(kept, w)
	}
	return strings.Join(kept, " "), found
}

// strip replaces every occurrence of the keywords with a space, longest first, so
// the removal can never join two fragments into a new keyword.
func strip(text string, keywords []string) string {
	sorted := append([]string(nil), keywords...)
	sort.SliceStable(sorted, func(i, j int) bool { return len(sorted[i]) > len(sorted[j]) })
	for _, kw := range sorted {
		text = strings.ReplaceAll(text, kw, " ")
	}
	return text
}

// sortedKeys gives a deterministic iteration order: longest keyword first, then alphabetical.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})
	return keys
}

func appendUnique[T comparable](list []T, v T) []T {
	for _, item := range list {
		if item == v {
			return list
		}
	}
	return append(list, v)
}
