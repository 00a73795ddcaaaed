package model

import (
	"fmt"
	"strings"
	"time"
)

// RegistrationStatus is the RFB situação cadastral code.
type RegistrationStatus string

const (
	StatusNull      RegistrationStatus = "01"
	StatusActive    RegistrationStatus = "02"
	StatusSuspended RegistrationStatus = "03"
	StatusUnfit     RegistrationStatus = "04"
	StatusClosed    RegistrationStatus = "08"
)

// EstablishmentType distinguishes a headquarters registration from a branch.
type EstablishmentType string

const (
	TypeHeadquarters EstablishmentType = "1"
	TypeBranch       EstablishmentType = "2"
)

// Date is a time.Time that round-trips through the RFB YYYYMMDD wire format.
// Empty or unparseable values decode to the zero time; the loader counts
// those as data-quality anomalies rather than rejecting the row.
type Date struct {
	time.Time
}

const dateLayout = "20060102"

// UnmarshalText decodes a YYYYMMDD date. Blank and malformed inputs yield
// the zero value without error.
func (d *Date) UnmarshalText(text []byte) error {
	s := strings.TrimSpace(string(text))
	if s == "" || s == "0" || s == "00000000" {
		d.Time = time.Time{}
		return nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		d.Time = time.Time{}
		return nil
	}
	d.Time = t
	return nil
}

// MarshalText encodes the date back to YYYYMMDD, or empty for the zero value.
func (d Date) MarshalText() ([]byte, error) {
	if d.IsZero() {
		return nil, nil
	}
	return []byte(d.Format(dateLayout)), nil
}

// Establishment is one row of the RFB establishment registry. The csv tags
// match the column names of the published dataset.
type Establishment struct {
	BaseCNPJ     string             `csv:"cnpj_basico" json:"cnpj_basico"`
	Type         EstablishmentType  `csv:"identificador_matriz_filial" json:"identificador_matriz_filial"`
	Status       RegistrationStatus `csv:"situacao_cadastral" json:"situacao_cadastral"`
	StatusDate   Date               `csv:"data_situacao_cadastral" json:"data_situacao_cadastral"`
	OpeningDate  Date               `csv:"data_inicio_atividade" json:"data_inicio_atividade"`
	ActivityCode string             `csv:"cnae_fiscal_principal" json:"cnae_fiscal_principal"`
	Municipality string             `csv:"nome_municipio" json:"nome_municipio"`
}

// OpeningYear returns the activity-start year, or 0 when the date is missing.
func (e *Establishment) OpeningYear() int {
	if e.OpeningDate.IsZero() {
		return 0
	}
	return e.OpeningDate.Year()
}

// StatusYear returns the status-change year, or 0 when the date is missing.
func (e *Establishment) StatusYear() int {
	if e.StatusDate.IsZero() {
		return 0
	}
	return e.StatusDate.Year()
}

// FormatCNPJ renders an 8-digit base CNPJ as XX.XXX.XXX for display.
func FormatCNPJ(base string) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return ""
	}
	if len(base) < 8 {
		base = strings.Repeat("0", 8-len(base)) + base
	}
	return fmt.Sprintf("%s.%s.%s", base[:2], base[2:5], base[5:8])
}
