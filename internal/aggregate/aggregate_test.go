package aggregate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dadoslab/rfbdash/internal/model"
)

func row(status model.RegistrationStatus, typ model.EstablishmentType, municipality, opening, statusDate string) model.Establishment {
	e := model.Establishment{
		BaseCNPJ:     "12345678",
		Status:       status,
		Type:         typ,
		Municipality: municipality,
		ActivityCode: "4711302",
	}
	_ = e.OpeningDate.UnmarshalText([]byte(opening))
	_ = e.StatusDate.UnmarshalText([]byte(statusDate))
	return e
}

// The three-row scenario from the dashboard's reference data.
func scenario() []model.Establishment {
	return []model.Establishment{
		row(model.StatusActive, model.TypeHeadquarters, "Porto Alegre", "20100101", "20100101"),
		row(model.StatusClosed, model.TypeBranch, "Canoas", "20150601", "20180601"),
		row(model.StatusActive, model.TypeBranch, "Porto Alegre", "20200315", "20200315"),
	}
}

func TestComputeSummary(t *testing.T) {
	s := ComputeSummary(scenario())
	assert.Equal(t, 3, s.Total)
	assert.Equal(t, 1, s.Headquarters)
	assert.Equal(t, 2, s.Branches)
	assert.Equal(t, 2, s.Active)
	assert.Equal(t, 1, s.Closed)
	assert.Equal(t, 2, s.Municipalities)
	assert.Equal(t, 1, s.ActivityCodes)
}

func TestStatusDistribution(t *testing.T) {
	dist := StatusDistribution(scenario())
	require.Len(t, dist, 2)

	assert.Equal(t, "02", dist[0].Code)
	assert.Equal(t, "ATIVA", dist[0].Label)
	assert.Equal(t, 2, dist[0].Count)
	assert.InDelta(t, 66.67, dist[0].Percent, 0.01)

	assert.Equal(t, "08", dist[1].Code)
	assert.Equal(t, 1, dist[1].Count)
	assert.InDelta(t, 33.33, dist[1].Percent, 0.01)

	// Counts sum to the subset size, percentages to 100.
	total, pct := 0, 0.0
	for _, d := range dist {
		total += d.Count
		pct += d.Percent
	}
	assert.Equal(t, 3, total)
	assert.InDelta(t, 100.0, pct, 1e-9)
}

func TestTypeDistribution(t *testing.T) {
	dist := TypeDistribution(scenario())
	require.Len(t, dist, 2)
	assert.Equal(t, "FILIAL", dist[0].Label)
	assert.Equal(t, 2, dist[0].Count)
	assert.Equal(t, "MATRIZ", dist[1].Label)
}

func TestTopMunicipalities(t *testing.T) {
	items, excluded := TopMunicipalities(scenario(), 5)
	require.Len(t, items, 2)
	assert.Zero(t, excluded)

	assert.Equal(t, "Porto Alegre", items[0].Name)
	assert.Equal(t, 2, items[0].Count)
	assert.Equal(t, "Canoas", items[1].Name)

	// Top-1 is clamped up to the minimum of 5 but still truncates to the
	// available buckets.
	one, _ := TopMunicipalities(scenario(), 1)
	assert.Len(t, one, 2)
}

func TestTopMunicipalitiesClamp(t *testing.T) {
	rows := scenario()
	items, _ := TopMunicipalities(rows, 500)
	assert.Len(t, items, 2)
}

func TestTopMunicipalitiesTiesAreDeterministic(t *testing.T) {
	rows := []model.Establishment{
		row(model.StatusActive, model.TypeBranch, "Canoas", "20100101", ""),
		row(model.StatusActive, model.TypeBranch, "Alvorada", "20100101", ""),
		row(model.StatusActive, model.TypeBranch, "Bagé", "20100101", ""),
	}
	items, _ := TopMunicipalities(rows, 5)
	require.Len(t, items, 3)
	assert.Equal(t, "Alvorada", items[0].Name)
	assert.Equal(t, "Bagé", items[1].Name)
	assert.Equal(t, "Canoas", items[2].Name)
}

func TestCountByMunicipality(t *testing.T) {
	rows := append(scenario(), row(model.StatusActive, model.TypeBranch, "", "20100101", ""))
	mc := CountByMunicipality(rows)

	assert.Equal(t, 2, mc.Counts["PORTO ALEGRE"])
	assert.Equal(t, 1, mc.Counts["CANOAS"])
	assert.Equal(t, "Porto Alegre", mc.Display["PORTO ALEGRE"])
	assert.Equal(t, 1, mc.Excluded)
}

func TestOpeningTimeline(t *testing.T) {
	rows := append(scenario(),
		row(model.StatusActive, model.TypeBranch, "Canoas", "", ""),         // missing
		row(model.StatusActive, model.TypeBranch, "Canoas", "18500101", "")) // pre-1900

	items, excluded := OpeningTimeline(rows)
	require.Len(t, items, 3)
	assert.Equal(t, 2, excluded)

	assert.Equal(t, YearCount{Year: 2010, Count: 1}, items[0])
	assert.Equal(t, YearCount{Year: 2015, Count: 1}, items[1])
	assert.Equal(t, YearCount{Year: 2020, Count: 1}, items[2])
}

func TestStatusTimeline(t *testing.T) {
	items, excluded := StatusTimeline(scenario())
	require.Len(t, items, 3)
	assert.Zero(t, excluded)
	assert.Equal(t, 2010, items[0].Year)
	assert.Equal(t, 2018, items[1].Year)
}

func TestDecadeDistribution(t *testing.T) {
	items, _ := DecadeDistribution(scenario())
	require.Len(t, items, 2)
	assert.Equal(t, DecadeCount{Decade: 2010, Label: "2010s", Count: 2}, items[0])
	assert.Equal(t, DecadeCount{Decade: 2020, Label: "2020s", Count: 1}, items[1])
}

func TestTopActivities(t *testing.T) {
	labels := map[string]string{"4711302": "4711302 - Supermercados"}
	items, excluded := TopActivities(scenario(), 10, func(code string) string {
		if l, ok := labels[code]; ok {
			return l
		}
		return code
	})
	require.Len(t, items, 1)
	assert.Zero(t, excluded)
	assert.Equal(t, "4711302", items[0].Code)
	assert.Equal(t, "4711302 - Supermercados", items[0].Label)
	assert.Equal(t, 3, items[0].Count)
	assert.InDelta(t, 100.0, items[0].Percent, 1e-9)
}

func TestTopActivitiesNilLabeler(t *testing.T) {
	items, _ := TopActivities(scenario(), 10, nil)
	require.Len(t, items, 1)
	assert.Equal(t, "4711302", items[0].Label)
}

func TestEmptySubset(t *testing.T) {
	var rows []model.Establishment

	assert.Zero(t, ComputeSummary(rows).Total)
	assert.Empty(t, StatusDistribution(rows))
	assert.Empty(t, TypeDistribution(rows))

	items, excluded := TopMunicipalities(rows, 10)
	assert.Empty(t, items)
	assert.Zero(t, excluded)

	timeline, _ := OpeningTimeline(rows)
	assert.Empty(t, timeline)

	decades, _ := DecadeDistribution(rows)
	assert.Empty(t, decades)

	activities, _ := TopActivities(rows, 10, nil)
	assert.Empty(t, activities)

	mc := CountByMunicipality(rows)
	assert.Empty(t, mc.Counts)
}
