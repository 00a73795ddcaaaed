// Package aggregate computes the dashboard's summary views over a filtered
// subset. Every function is pure, safe on empty input, and deterministic:
// counts sort descending with ties broken by ascending label, timelines
// sort by year ascending. Percentages are taken against the subset size,
// not the unfiltered table. Rows missing the grouping key are excluded
// from that aggregation and reported in the excluded return value.
package aggregate

import (
	"sort"
	"strconv"
	"time"

	"github.com/dadoslab/rfbdash/internal/geodata"
	"github.com/dadoslab/rfbdash/internal/model"
)

// Opening years outside this window are registry noise (the RFB table
// contains placeholder dates like 0001-01-01).
const minValidYear = 1900

// Summary holds the headline metrics of the Overview tab.
type Summary struct {
	Total          int `json:"total"`
	Headquarters   int `json:"headquarters"`
	Branches       int `json:"branches"`
	Active         int `json:"active"`
	Closed         int `json:"closed"`
	Municipalities int `json:"municipalities"`
	ActivityCodes  int `json:"activity_codes"`
}

// CodeCount is one bucket of a categorical distribution.
type CodeCount struct {
	Code    string  `json:"code"`
	Label   string  `json:"label"`
	Count   int     `json:"count"`
	Percent float64 `json:"percent"`
}

// NamedCount is one municipality bucket.
type NamedCount struct {
	Name    string  `json:"name"`
	Count   int     `json:"count"`
	Percent float64 `json:"percent"`
}

// YearCount is one time-series bucket.
type YearCount struct {
	Year  int `json:"year"`
	Count int `json:"count"`
}

// DecadeCount is one bucket of the decade histogram.
type DecadeCount struct {
	Decade int    `json:"decade"`
	Label  string `json:"label"`
	Count  int    `json:"count"`
}

// ComputeSummary returns the headline metrics for the subset.
func ComputeSummary(rows []model.Establishment) Summary {
	s := Summary{Total: len(rows)}
	municipalities := map[string]bool{}
	activities := map[string]bool{}
	for i := range rows {
		e := &rows[i]
		switch e.Type {
		case model.TypeHeadquarters:
			s.Headquarters++
		case model.TypeBranch:
			s.Branches++
		}
		switch e.Status {
		case model.StatusActive:
			s.Active++
		case model.StatusClosed:
			s.Closed++
		}
		if e.Municipality != "" {
			municipalities[e.Municipality] = true
		}
		if e.ActivityCode != "" {
			activities[e.ActivityCode] = true
		}
	}
	s.Municipalities = len(municipalities)
	s.ActivityCodes = len(activities)
	return s
}

// StatusDistribution counts rows per registration status, descending.
func StatusDistribution(rows []model.Establishment) []CodeCount {
	counts := map[model.RegistrationStatus]int{}
	for i := range rows {
		counts[rows[i].Status]++
	}
	out := make([]CodeCount, 0, len(counts))
	for code, n := range counts {
		out = append(out, CodeCount{
			Code:    string(code),
			Label:   code.Label(),
			Count:   n,
			Percent: percent(n, len(rows)),
		})
	}
	sortCodeCounts(out)
	return out
}

// TypeDistribution counts headquarters versus branches, descending.
func TypeDistribution(rows []model.Establishment) []CodeCount {
	counts := map[model.EstablishmentType]int{}
	for i := range rows {
		counts[rows[i].Type]++
	}
	out := make([]CodeCount, 0, len(counts))
	for code, n := range counts {
		out = append(out, CodeCount{
			Code:    string(code),
			Label:   code.Label(),
			Count:   n,
			Percent: percent(n, len(rows)),
		})
	}
	sortCodeCounts(out)
	return out
}

// MunicipalityCounts groups the subset by normalized municipality name for
// the choropleth join. Display maps each normalized key back to the name
// as it appears in the table.
type MunicipalityCounts struct {
	Counts   map[string]int
	Display  map[string]string
	Excluded int
}

// CountByMunicipality aggregates rows per municipality, keyed by the
// normalized name used by the boundary file.
func CountByMunicipality(rows []model.Establishment) MunicipalityCounts {
	mc := MunicipalityCounts{
		Counts:  map[string]int{},
		Display: map[string]string{},
	}
	for i := range rows {
		name := rows[i].Municipality
		if name == "" {
			mc.Excluded++
			continue
		}
		key := geodata.NormalizeName(name)
		mc.Counts[key]++
		if _, ok := mc.Display[key]; !ok {
			mc.Display[key] = name
		}
	}
	return mc
}

// TopMunicipalities returns the n municipalities with the most rows,
// descending. n is clamped to [5, 50].
func TopMunicipalities(rows []model.Establishment, n int) (items []NamedCount, excluded int) {
	n = clamp(n, 5, 50)

	counts := map[string]int{}
	for i := range rows {
		name := rows[i].Municipality
		if name == "" {
			excluded++
			continue
		}
		counts[name]++
	}

	items = make([]NamedCount, 0, len(counts))
	for name, c := range counts {
		items = append(items, NamedCount{Name: name, Count: c, Percent: percent(c, len(rows))})
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Count != items[j].Count {
			return items[i].Count > items[j].Count
		}
		return items[i].Name < items[j].Name
	})
	if len(items) > n {
		items = items[:n]
	}
	return items, excluded
}

// OpeningTimeline counts rows per activity-start year, ascending. Years
// before 1900 or in the future are excluded along with missing dates.
func OpeningTimeline(rows []model.Establishment) (items []YearCount, excluded int) {
	return yearSeries(rows, (*model.Establishment).OpeningYear)
}

// StatusTimeline counts rows per status-change year, ascending.
func StatusTimeline(rows []model.Establishment) (items []YearCount, excluded int) {
	return yearSeries(rows, (*model.Establishment).StatusYear)
}

func yearSeries(rows []model.Establishment, yearOf func(*model.Establishment) int) (items []YearCount, excluded int) {
	maxYear := time.Now().Year()
	counts := map[int]int{}
	for i := range rows {
		y := yearOf(&rows[i])
		if y < minValidYear || y > maxYear {
			excluded++
			continue
		}
		counts[y]++
	}
	items = make([]YearCount, 0, len(counts))
	for y, c := range counts {
		items = append(items, YearCount{Year: y, Count: c})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Year < items[j].Year })
	return items, excluded
}

// DecadeDistribution buckets the opening timeline into decades.
func DecadeDistribution(rows []model.Establishment) (items []DecadeCount, excluded int) {
	years, excluded := OpeningTimeline(rows)
	counts := map[int]int{}
	for _, yc := range years {
		counts[yc.Year/10*10] += yc.Count
	}
	items = make([]DecadeCount, 0, len(counts))
	for d, c := range counts {
		items = append(items, DecadeCount{Decade: d, Label: decadeLabel(d), Count: c})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Decade < items[j].Decade })
	return items, excluded
}

// TopActivities returns the n most frequent economic-activity codes,
// descending, labeled through the lookup. n is clamped to [10, 100].
func TopActivities(rows []model.Establishment, n int, label func(string) string) (items []CodeCount, excluded int) {
	n = clamp(n, 10, 100)
	if label == nil {
		label = func(code string) string { return code }
	}

	counts := map[string]int{}
	for i := range rows {
		code := rows[i].ActivityCode
		if code == "" {
			excluded++
			continue
		}
		counts[code]++
	}

	items = make([]CodeCount, 0, len(counts))
	for code, c := range counts {
		items = append(items, CodeCount{
			Code:    code,
			Label:   label(code),
			Count:   c,
			Percent: percent(c, len(rows)),
		})
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Count != items[j].Count {
			return items[i].Count > items[j].Count
		}
		return items[i].Code < items[j].Code
	})
	if len(items) > n {
		items = items[:n]
	}
	return items, excluded
}

func sortCodeCounts(items []CodeCount) {
	sort.Slice(items, func(i, j int) bool {
		if items[i].Count != items[j].Count {
			return items[i].Count > items[j].Count
		}
		return items[i].Label < items[j].Label
	})
}

func percent(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}

func clamp(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}

func decadeLabel(decade int) string {
	// 2010 -> "2010s"
	return strconv.Itoa(decade) + "s"
}
