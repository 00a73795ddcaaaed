// Package export serializes a filtered subset to downloadable byte
// streams. Both encoders emit exactly the columns of the preview table,
// in the same order, and produce a header-only file for an empty subset.
package export

import (
	"bytes"
	"encoding/csv"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/dadoslab/rfbdash/internal/model"
)

// ErrEncode marks an export serialization failure. Handlers report it
// inline instead of tearing down the session.
var ErrEncode = eris.New("export encoding failed")

// SheetName is the tab name of the XLSX export.
const SheetName = "Estabelecimentos"

// columns mirror the csv tags of model.Establishment, in preview order.
var columns = []string{
	"cnpj_basico",
	"identificador_matriz_filial",
	"situacao_cadastral",
	"data_situacao_cadastral",
	"data_inicio_atividade",
	"cnae_fiscal_principal",
	"nome_municipio",
}

// CSV encodes the subset as a UTF-8 CSV with a header row.
func CSV(rows []model.Establishment) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	enc := csvutil.NewEncoder(w)

	if err := enc.EncodeHeader(model.Establishment{}); err != nil {
		return nil, wrapEncode(err, "export: encode csv header")
	}
	for i := range rows {
		if err := enc.Encode(rows[i]); err != nil {
			return nil, wrapEncode(err, "export: encode csv row")
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, wrapEncode(err, "export: flush csv")
	}
	return buf.Bytes(), nil
}

// XLSX encodes the subset as a single-sheet spreadsheet.
func XLSX(rows []model.Establishment) ([]byte, error) {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet(SheetName)
	if err != nil {
		return nil, wrapEncode(err, "export: add sheet")
	}

	header := sheet.AddRow()
	for _, col := range columns {
		header.AddCell().SetString(col)
	}

	for i := range rows {
		e := &rows[i]
		r := sheet.AddRow()
		r.AddCell().SetString(e.BaseCNPJ)
		r.AddCell().SetString(string(e.Type))
		r.AddCell().SetString(string(e.Status))
		r.AddCell().SetString(dateString(e.StatusDate))
		r.AddCell().SetString(dateString(e.OpeningDate))
		r.AddCell().SetString(e.ActivityCode)
		r.AddCell().SetString(e.Municipality)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, wrapEncode(err, "export: write xlsx")
	}
	return buf.Bytes(), nil
}

func dateString(d model.Date) string {
	text, err := d.MarshalText()
	if err != nil {
		return ""
	}
	return string(text)
}

// wrapEncode keeps ErrEncode in the chain so handlers can classify the
// failure while the cause stays readable.
func wrapEncode(err error, msg string) error {
	return eris.Wrapf(ErrEncode, "%s: %v", msg, err)
}
