package export

import (
	"bytes"
	"encoding/csv"
	"io"
	"testing"

	"github.com/jszwec/csvutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/dadoslab/rfbdash/internal/model"
)

func sampleRows() []model.Establishment {
	mk := func(cnpj string, typ model.EstablishmentType, status model.RegistrationStatus, statusDate, opening, cnae, municipality string) model.Establishment {
		e := model.Establishment{
			BaseCNPJ:     cnpj,
			Type:         typ,
			Status:       status,
			ActivityCode: cnae,
			Municipality: municipality,
		}
		_ = e.StatusDate.UnmarshalText([]byte(statusDate))
		_ = e.OpeningDate.UnmarshalText([]byte(opening))
		return e
	}
	return []model.Establishment{
		mk("12345678", model.TypeHeadquarters, model.StatusActive, "20150317", "20100101", "4711302", "PORTO ALEGRE"),
		mk("87654321", model.TypeBranch, model.StatusClosed, "20200110", "", "5611201", "CANOAS"),
	}
}

func TestCSVRoundTrip(t *testing.T) {
	rows := sampleRows()

	data, err := CSV(rows)
	require.NoError(t, err)

	dec, err := csvutil.NewDecoder(csv.NewReader(bytes.NewReader(data)))
	require.NoError(t, err)
	assert.Equal(t, columns, dec.Header())

	var decoded []model.Establishment
	for {
		var e model.Establishment
		if err := dec.Decode(&e); err == io.EOF {
			break
		} else {
			require.NoError(t, err)
		}
		decoded = append(decoded, e)
	}
	assert.Equal(t, rows, decoded)
}

func TestCSVEmptySubsetIsHeaderOnly(t *testing.T) {
	data, err := CSV(nil)
	require.NoError(t, err)

	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, columns, records[0])
}

func TestXLSX(t *testing.T) {
	data, err := XLSX(sampleRows())
	require.NoError(t, err)

	f, err := xlsx.OpenBinary(data)
	require.NoError(t, err)

	sheet, ok := f.Sheet[SheetName]
	require.True(t, ok)
	require.Len(t, sheet.Rows, 3)

	var header []string
	for _, c := range sheet.Rows[0].Cells {
		header = append(header, c.String())
	}
	assert.Equal(t, columns, header)

	first := sheet.Rows[1]
	assert.Equal(t, "12345678", first.Cells[0].String())
	assert.Equal(t, "1", first.Cells[1].String())
	assert.Equal(t, "02", first.Cells[2].String())
	assert.Equal(t, "20150317", first.Cells[3].String())
	assert.Equal(t, "20100101", first.Cells[4].String())
	assert.Equal(t, "PORTO ALEGRE", first.Cells[6].String())

	// Missing opening date stays blank.
	second := sheet.Rows[2]
	assert.Equal(t, "", second.Cells[4].String())
}

func TestXLSXEmptySubsetIsHeaderOnly(t *testing.T) {
	data, err := XLSX(nil)
	require.NoError(t, err)

	f, err := xlsx.OpenBinary(data)
	require.NoError(t, err)
	sheet, ok := f.Sheet[SheetName]
	require.True(t, ok)
	assert.Len(t, sheet.Rows, 1)
}
