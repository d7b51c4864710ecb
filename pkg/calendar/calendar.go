package calendar

import (
	"fmt"
	"sort"
	"time"

	"github.com/timoknapp/orienteering-finder/pkg/models"
)

var monthNames = [...]string{
	"januari", "februari", "mars", "april", "maj", "juni",
	"juli", "augusti", "september", "oktober", "november", "december",
}

var weekdayNames = [...]string{"mån", "tis", "ons", "tor", "fre", "lör", "sön"}

// MonthName returns the Swedish name of m.
func MonthName(m time.Month) string {
	return monthNames[m-1]
}

type MonthGroup struct {
	Year         int                  `json:"year"`
	Month        time.Month           `json:"month"`
	Label        string               `json:"label"`
	Competitions []models.Competition `json:"competitions"`
}

type WeekGroup struct {
	Year         int                  `json:"year"` // ISO week-numbering year
	Week         int                  `json:"week"`
	Start        models.Date          `json:"start"`
	End          models.Date          `json:"end"`
	Label        string               `json:"label"`
	Competitions []models.Competition `json:"competitions"`
}

type Day struct {
	Date         models.Date          `json:"date"`
	Weekday      string               `json:"weekday"`
	InMonth      bool                 `json:"inMonth"`
	Weekend      bool                 `json:"weekend"`
	Competitions []models.Competition `json:"competitions"`
}

type Week struct {
	Number int    `json:"number"`
	Days   [7]Day `json:"days"`
}

// Month is the wall-calendar view: ISO weeks starting on Monday covering the month.
type Month struct {
	Year  int        `json:"year"`
	Month time.Month `json:"month"`
	Label string     `json:"label"`
	Weeks []Week     `json:"weeks"`
}

func chronological(competitions []models.Competition) []models.Competition {
	sorted := append([]models.Competition(nil), competitions...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})
	return sorted
}

// GroupByMonth groups competitions per calendar month. Groups and their items are in
// date order; competitions on the same date keep their input order.
func GroupByMonth(competitions []models.Competition) []MonthGroup {
	var groups []MonthGroup
	for _, c := range chronological(competitions) {
		n := len(groups)
		if n == 0 || groups[n-1].Year != c.Date.Year() || groups[n-1].Month != c.Date.Month() {
			groups = append(groups, MonthGroup{
				Year:  c.Date.Year(),
				Month: c.Date.Month(),
				Label: fmt.Sprintf("%s %d", MonthName(c.Date.Month()), c.Date.Year()),
			})
			n++
		}
		groups[n-1].Competitions = append(groups[n-1].Competitions, c)
	}
	return groups
}

// GroupByWeek groups competitions per ISO week in date order.
func GroupByWeek(competitions []models.Competition) []WeekGroup {
	var groups []WeekGroup
	for _, c := range chronological(competitions) {
		year, week := c.Date.Time().ISOWeek()
		n := len(groups)
		if n == 0 || groups[n-1].Year != year || groups[n-1].Week != week {
			start := mondayOf(c.Date)
			groups = append(groups, WeekGroup{
				Year:  year,
				Week:  week,
				Start: start,
				End:   start.AddDays(6),
				Label: fmt.Sprintf("Vecka %d", week),
			})
			n++
		}
		groups[n-1].Competitions = append(groups[n-1].Competitions, c)
	}
	return groups
}

// BuildMonth lays out year/month as full Monday-to-Sunday weeks. Days outside the
// month are present with InMonth false and never hold competitions.
func BuildMonth(year int, month time.Month, competitions []models.Competition) Month {
	first := models.NewDate(year, month, 1)
	last := models.NewDate(year, month+1, 1).AddDays(-1)

	byDay := make(map[models.Date][]models.Competition)
	for _, c := range chronological(competitions) {
		if !c.Date.Before(first) && !c.Date.After(last) {
			byDay[c.Date] = append(byDay[c.Date], c)
		}
	}

	m := Month{Year: year, Month: month, Label: fmt.Sprintf("%s %d", MonthName(month), year)}
	for start := mondayOf(first); !start.After(last); start = start.AddDays(7) {
		_, number := start.Time().ISOWeek()
		w := Week{Number: number}
		for i := 0; i < 7; i++ {
			d := start.AddDays(i)
			inMonth := d.Month() == month
			w.Days[i] = Day{
				Date:    d,
				Weekday: weekdayNames[i],
				InMonth: inMonth,
				Weekend: i >= 5,
			}
			if inMonth {
				w.Days[i].Competitions = byDay[d]
			}
		}
		m.Weeks = append(m.Weeks, w)
	}
	return m
}

func mondayOf(d models.Date) models.Date {
	return d.AddDays(-((int(d.Weekday()) + 6) % 7))
}
