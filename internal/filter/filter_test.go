package filter

import (
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dadoslab/rfbdash/internal/model"
)

func row(status model.RegistrationStatus, typ model.EstablishmentType, municipality, opening string) model.Establishment {
	e := model.Establishment{
		BaseCNPJ:     "12345678",
		Status:       status,
		Type:         typ,
		Municipality: municipality,
		ActivityCode: "4711302",
	}
	_ = e.OpeningDate.UnmarshalText([]byte(opening))
	return e
}

func sampleRows() []model.Establishment {
	return []model.Establishment{
		row(model.StatusActive, model.TypeHeadquarters, "PORTO ALEGRE", "20100101"),
		row(model.StatusClosed, model.TypeBranch, "CANOAS", "20150601"),
		row(model.StatusActive, model.TypeBranch, "PORTO ALEGRE", "20200315"),
	}
}

func TestApplyNoRestriction(t *testing.T) {
	rows := sampleRows()
	out, err := Apply(rows, Spec{})
	require.NoError(t, err)
	assert.Equal(t, rows, out)

	// Result is a copy, not a view.
	out[0].Municipality = "MUTATED"
	assert.Equal(t, "PORTO ALEGRE", rows[0].Municipality)
}

func TestApplyStatus(t *testing.T) {
	out, err := Apply(sampleRows(), Spec{Statuses: []model.RegistrationStatus{model.StatusActive}})
	require.NoError(t, err)
	require.Len(t, out, 2)
	for _, e := range out {
		assert.Equal(t, model.StatusActive, e.Status)
	}
}

func TestApplyConjunction(t *testing.T) {
	spec := Spec{
		Statuses:       []model.RegistrationStatus{model.StatusActive},
		Types:          []model.EstablishmentType{model.TypeBranch},
		Municipalities: []string{"PORTO ALEGRE"},
		YearMin:        2019,
		YearMax:        2021,
	}
	out, err := Apply(sampleRows(), spec)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, 2020, out[0].OpeningYear())
}

func TestApplyYearRangeExcludesMissingDates(t *testing.T) {
	rows := append(sampleRows(), row(model.StatusActive, model.TypeHeadquarters, "PELOTAS", ""))
	out, err := Apply(rows, Spec{YearMin: 1900, YearMax: 2100})
	require.NoError(t, err)
	assert.Len(t, out, 3)
}

func TestApplyOpenEndedYearRange(t *testing.T) {
	out, err := Apply(sampleRows(), Spec{YearMin: 2015})
	require.NoError(t, err)
	assert.Len(t, out, 2)

	out, err = Apply(sampleRows(), Spec{YearMax: 2014})
	require.NoError(t, err)
	assert.Len(t, out, 1)
}

func TestApplyEmptyResult(t *testing.T) {
	out, err := Apply(sampleRows(), Spec{Statuses: []model.RegistrationStatus{model.StatusSuspended}})
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestApplySubsetProperty(t *testing.T) {
	rows := sampleRows()
	specs := []Spec{
		{},
		{Statuses: []model.RegistrationStatus{model.StatusClosed}},
		{Municipalities: []string{"CANOAS", "PELOTAS"}},
		{YearMin: 2012, YearMax: 2018},
		{Types: []model.EstablishmentType{model.TypeHeadquarters}, YearMax: 2011},
	}
	for _, spec := range specs {
		out, err := Apply(rows, spec)
		require.NoError(t, err)
		assert.LessOrEqual(t, len(out), len(rows))
	}
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Spec{}.Validate())
	assert.NoError(t, Spec{YearMin: 2000, YearMax: 2020}.Validate())

	err := Spec{YearMin: 2020, YearMax: 2000}.Validate()
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrInvalidSpec))

	err = Spec{Statuses: []model.RegistrationStatus{"99"}}.Validate()
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrInvalidSpec))

	err = Spec{Types: []model.EstablishmentType{"9"}}.Validate()
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrInvalidSpec))
}

func TestApplyInvalidSpec(t *testing.T) {
	_, err := Apply(sampleRows(), Spec{YearMin: -1})
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrInvalidSpec))
}
