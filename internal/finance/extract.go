package finance

import (
	"strings"

	"github.com/rotisserie/eris"

	"github.com/andes-group/invest-cli/internal/numparse"
)

// LoanField names an extractable one-time cost item in a simulator offer.
type LoanField string

const (
	FieldOriginationTax LoanField = "origination_tax"
	FieldNotarial       LoanField = "notarial"
	FieldRegistry       LoanField = "registry"
	FieldAppraisal      LoanField = "appraisal"
	FieldTitleSearch    LoanField = "title_search"
	FieldBankProcessing LoanField = "bank_processing"
	FieldMonthlyPayment LoanField = "monthly_payment"
	FieldRate           LoanField = "rate"
)

// ErrFieldNotFound is returned when no label for the field matches.
var ErrFieldNotFound = eris.New("finance: loan field not found")

// fieldLabels maps each field to the labels simulators use for it,
// checked in order against each line of the offer detail. One table
// instead of a helper per field keeps the label sets from drifting.
var fieldLabels = map[LoanField][]string{
	FieldOriginationTax: {"impuesto al mutuo", "impuesto timbres", "timbres y estampillas"},
	FieldNotarial:       {"gastos notariales", "notaría", "notaria"},
	FieldRegistry:       {"conservador", "inscripción", "inscripcion"},
	FieldAppraisal:      {"tasación", "tasacion"},
	FieldTitleSearch:    {"estudio de títulos", "estudio de titulos", "estudio legal"},
	FieldBankProcessing: {"gastos operacionales", "gastos bancarios", "comisión bancaria", "comision bancaria"},
	FieldMonthlyPayment: {"dividendo mensual", "dividendo", "cuota mensual"},
	FieldRate:           {"tasa anual", "tasa de interés", "tasa de interes", "tasa"},
}

// ExtractLoanField pulls one named cost item out of a simulator's
// free-text offer detail. Matching is per line, case-insensitive; the
// first numeric token after the label is parsed with the shared locale
// rules.
func ExtractLoanField(raw string, field LoanField) (float64, error) {
	labels, ok := fieldLabels[field]
	if !ok {
		return 0, eris.Errorf("finance: unknown loan field %q", field)
	}

	for _, line := range strings.Split(raw, "\n") {
		lower := strings.ToLower(line)
		for _, label := range labels {
			idx := strings.Index(lower, label)
			if idx < 0 {
				continue
			}
			rest := line[idx+len(label):]
			if v, err := firstNumber(rest); err == nil {
				return v, nil
			}
		}
	}
	return 0, eris.Wrapf(ErrFieldNotFound, "%s", field)
}

// firstNumber scans text for the first numeric token (optionally
// currency-prefixed) and parses it.
func firstNumber(text string) (float64, error) {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return r == ':' || r == '\t' || r == ' ' || r == '='
	})
	for _, f := range fields {
		if v, err := numparse.Parse(f); err == nil {
			return v, nil
		}
	}
	return 0, ErrFieldNotFound
}
