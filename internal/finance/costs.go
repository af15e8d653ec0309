package finance

import (
	"go.uber.org/zap"

	"github.com/andes-group/invest-cli/internal/model"
)

// CostParams holds the rate and fee assumptions behind the cost
// composition. Zero values fall back to the documented defaults.
type CostParams struct {
	// Monthly recurring.
	PropertyTaxPctAnnual float64 `mapstructure:"property_tax_pct_annual"`
	MaintenancePctRent   float64 `mapstructure:"maintenance_pct_rent"`
	ManagementPctRent    float64 `mapstructure:"management_pct_rent"`
	UseManager           bool    `mapstructure:"use_manager"`
	VacancyPctRent       float64 `mapstructure:"vacancy_pct_rent"`
	InsuranceAnnualCLP   float64 `mapstructure:"insurance_annual_clp"`
	CommonFeeCLP         float64 `mapstructure:"common_fee_clp"`
	RepairReserveCLP     float64 `mapstructure:"repair_reserve_clp"`

	// One-time acquisition.
	OriginationTaxPctPrincipal float64 `mapstructure:"origination_tax_pct_principal"`
	NotarialFeeCLP             float64 `mapstructure:"notarial_fee_clp"`
	TitleRegistryPctPrice      float64 `mapstructure:"title_registry_pct_price"`
	AppraisalFeeCLP            float64 `mapstructure:"appraisal_fee_clp"`
	TitleSearchFeeCLP          float64 `mapstructure:"title_search_fee_clp"`
	BankProcessingFeeCLP       float64 `mapstructure:"bank_processing_fee_clp"`
	BrokerCommissionPctPrice   float64 `mapstructure:"broker_commission_pct_price"`
	UseBroker                  bool    `mapstructure:"use_broker"`
}

// DefaultCostParams returns the canonical assumption set.
func DefaultCostParams() CostParams {
	return CostParams{
		PropertyTaxPctAnnual: 1.0,
		MaintenancePctRent:   3.0,
		ManagementPctRent:    8.0,
		VacancyPctRent:       4.0,
		InsuranceAnnualCLP:   180_000,
		RepairReserveCLP:     30_000,

		OriginationTaxPctPrincipal: 0.8,
		NotarialFeeCLP:             150_000,
		TitleRegistryPctPrice:      0.2,
		AppraisalFeeCLP:            120_000,
		TitleSearchFeeCLP:          50_000,
		BankProcessingFeeCLP:       200_000,
		BrokerCommissionPctPrice:   2.0,
	}
}

// brokerVATPct is the VAT applied on top of broker commission.
const brokerVATPct = 19.0

// acquisitionFallbackPctPrice is the flat estimate used when neither the
// price breakdown nor the simulator detail yields itemized costs. The
// canonical figure is 6% of price; an older 13% variant double-counted
// broker commission and loan tax and is not used.
const acquisitionFallbackPctPrice = 6.0

func (p CostParams) withDefaults() CostParams {
	d := DefaultCostParams()
	if p.PropertyTaxPctAnnual <= 0 {
		p.PropertyTaxPctAnnual = d.PropertyTaxPctAnnual
	}
	if p.MaintenancePctRent <= 0 {
		p.MaintenancePctRent = d.MaintenancePctRent
	}
	if p.ManagementPctRent <= 0 {
		p.ManagementPctRent = d.ManagementPctRent
	}
	if p.VacancyPctRent <= 0 {
		p.VacancyPctRent = d.VacancyPctRent
	}
	if p.InsuranceAnnualCLP <= 0 {
		p.InsuranceAnnualCLP = d.InsuranceAnnualCLP
	}
	if p.RepairReserveCLP <= 0 {
		p.RepairReserveCLP = d.RepairReserveCLP
	}
	if p.OriginationTaxPctPrincipal <= 0 {
		p.OriginationTaxPctPrincipal = d.OriginationTaxPctPrincipal
	}
	if p.NotarialFeeCLP <= 0 {
		p.NotarialFeeCLP = d.NotarialFeeCLP
	}
	if p.TitleRegistryPctPrice <= 0 {
		p.TitleRegistryPctPrice = d.TitleRegistryPctPrice
	}
	if p.AppraisalFeeCLP <= 0 {
		p.AppraisalFeeCLP = d.AppraisalFeeCLP
	}
	if p.TitleSearchFeeCLP <= 0 {
		p.TitleSearchFeeCLP = d.TitleSearchFeeCLP
	}
	if p.BankProcessingFeeCLP <= 0 {
		p.BankProcessingFeeCLP = d.BankProcessingFeeCLP
	}
	if p.BrokerCommissionPctPrice <= 0 {
		p.BrokerCommissionPctPrice = d.BrokerCommissionPctPrice
	}
	return p
}

// OperatingCosts composes the monthly recurring cost figure. Only
// recurring items belong here; acquisition costs are a separate call.
func OperatingCosts(p CostParams, priceCLP, rentCLP float64) float64 {
	p = p.withDefaults()

	total := priceCLP * p.PropertyTaxPctAnnual / 100 / 12
	total += rentCLP * p.MaintenancePctRent / 100
	if p.UseManager {
		total += rentCLP * p.ManagementPctRent / 100
	}
	total += rentCLP * p.VacancyPctRent / 100
	total += p.InsuranceAnnualCLP / 12
	total += p.CommonFeeCLP
	total += p.RepairReserveCLP
	return total
}

// AcquisitionCosts composes the one-time acquisition total. Each item
// prefers a figure extracted from the simulator's offer detail; extraction
// failures fall back to the default formula and are logged, never fatal.
func AcquisitionCosts(p CostParams, priceCLP, principalCLP float64, scenario *model.LoanScenario) float64 {
	p = p.withDefaults()

	if priceCLP <= 0 && principalCLP <= 0 {
		zap.L().Warn("finance: no price or principal for acquisition costs")
		return 0
	}

	raw := ""
	if scenario != nil {
		raw = scenario.RawDetail
	}

	item := func(field LoanField, def float64) float64 {
		if raw == "" {
			return def
		}
		v, err := ExtractLoanField(raw, field)
		if err != nil {
			zap.L().Debug("finance: loan field extraction failed, using default",
				zap.String("field", string(field)),
				zap.Float64("default", def),
			)
			return def
		}
		return v
	}

	// No simulator detail and no principal to itemize against: flat
	// estimate against price.
	if raw == "" && principalCLP <= 0 {
		return priceCLP * acquisitionFallbackPctPrice / 100
	}

	total := item(FieldOriginationTax, principalCLP*p.OriginationTaxPctPrincipal/100)
	total += item(FieldNotarial, p.NotarialFeeCLP)
	total += item(FieldRegistry, priceCLP*p.TitleRegistryPctPrice/100)
	total += item(FieldAppraisal, p.AppraisalFeeCLP)
	total += item(FieldTitleSearch, p.TitleSearchFeeCLP)
	total += item(FieldBankProcessing, p.BankProcessingFeeCLP)
	if p.UseBroker {
		total += priceCLP * p.BrokerCommissionPctPrice / 100 * (1 + brokerVATPct/100)
	}
	return total
}
