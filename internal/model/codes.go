package model

import (
	_ "embed"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed codes.yaml
var codesYAML []byte

type codeTables struct {
	RegistrationStatus map[RegistrationStatus]string `yaml:"registration_status"`
	EstablishmentType  map[EstablishmentType]string  `yaml:"establishment_type"`
}

var codes codeTables

func init() {
	if err := yaml.Unmarshal(codesYAML, &codes); err != nil {
		panic("model: parse embedded codes.yaml: " + err.Error())
	}
}

// Label returns the RFB label for the status code, or "DESCONHECIDA" for
// codes outside the published table.
func (s RegistrationStatus) Label() string {
	if label, ok := codes.RegistrationStatus[s]; ok {
		return label
	}
	return "DESCONHECIDA"
}

// Known reports whether the status code appears in the published code table.
func (s RegistrationStatus) Known() bool {
	_, ok := codes.RegistrationStatus[s]
	return ok
}

// Label returns the RFB label for the type code, or "DESCONHECIDO" for
// codes outside the published table.
func (t EstablishmentType) Label() string {
	if label, ok := codes.EstablishmentType[t]; ok {
		return label
	}
	return "DESCONHECIDO"
}

// Known reports whether the type code appears in the published code table.
func (t EstablishmentType) Known() bool {
	_, ok := codes.EstablishmentType[t]
	return ok
}

// AllStatuses returns the published status codes in ascending code order.
func AllStatuses() []RegistrationStatus {
	out := make([]RegistrationStatus, 0, len(codes.RegistrationStatus))
	for code := range codes.RegistrationStatus {
		out = append(out, code)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// AllTypes returns the published type codes in ascending code order.
func AllTypes() []EstablishmentType {
	out := make([]EstablishmentType, 0, len(codes.EstablishmentType))
	for code := range codes.EstablishmentType {
		out = append(out, code)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
