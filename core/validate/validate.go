// Package validate classifies raw user text against the structural rules of the
// policy lookup dialogue. Every function is pure.
package validate

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// MinNameLength is the minimum trimmed length, in characters, of a full name.
const MinNameLength = 5

var (
	curpRe = regexp.MustCompile(`^[A-Z]{4}[0-9]{6}[HM][A-Z]{5}[0-9]{2}$`)
	dateRe = regexp.MustCompile(`^(0[1-9]|[12][0-9]|3[01])/(0[1-9]|1[0-2])/\d{4}$`)
)

// Category is a selectable insurance line.
type Category struct {
	Code  string
	Label string
}

var categories = []Category{
	{Code: "1", Label: "Seguro de Auto"},
	{Code: "2", Label: "Seguro de Vida"},
	{Code: "3", Label: "Gastos Médicos Mayores"},
	{Code: "4", Label: "Seguro Empresarial"},
	{Code: "5", Label: "Otro tipo de seguro"},
}

// FullName trims raw and accepts it when it has at least MinNameLength characters.
func FullName(raw string) (string, bool) {
	name := strings.TrimSpace(raw)
	return name, utf8.RuneCountInString(name) >= MinNameLength
}

// NationalID uppercases raw and matches it against the 18-character CURP structure.
// The returned value is the normalized form to store.
func NationalID(raw string) (string, bool) {
	id := strings.ToUpper(raw)
	return id, curpRe.MatchString(id)
}

// BirthDate matches DD/MM/YYYY with day 01-31 and month 01-12.
// Calendar validity is not checked, so 31/02/2020 passes.
func BirthDate(raw string) (string, bool) {
	return raw, dateRe.MatchString(raw)
}

// InsuranceCategory resolves an exact category code to its label.
func InsuranceCategory(code string) (string, bool) {
	for _, c := range categories {
		if c.Code == code {
			return c.Label, true
		}
	}
	return "", false
}

// Categories returns the insurance lines in menu order.
func Categories() []Category {
	return append([]Category(nil), categories...)
}
