package fees

import (
	"fmt"
	"os"

	"trading-core-go/internal/models"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v2"
)

// WithdrawalComponents are the per-method inputs for a withdrawal fee
// breakdown: two rate-based components and two flat ones.
type WithdrawalComponents struct {
	ProcessingRate decimal.Decimal
	NetworkFee     decimal.Decimal
	ServiceFee     decimal.Decimal
	ComplianceRate decimal.Decimal
}

// Schedule holds every fee constant for one build. It is never persisted;
// fees are recomputed from the draft on every amount change.
type Schedule struct {
	Rates             map[models.OperationType]decimal.Decimal
	TransferFlat      decimal.Decimal
	Withdrawal        map[string]WithdrawalComponents
	DefaultWithdrawal WithdrawalComponents
}

// DefaultSchedule returns the built-in fee constants: 1.5% buy/sell, 0.5%
// convert, fixed-fee transfers, and method-specific withdrawal components.
func DefaultSchedule() *Schedule {
	return &Schedule{
		Rates: map[models.OperationType]decimal.Decimal{
			models.OperationBuy:     decimal.RequireFromString("0.015"),
			models.OperationSell:    decimal.RequireFromString("0.015"),
			models.OperationConvert: decimal.RequireFromString("0.005"),
			models.OperationDeposit: decimal.Zero,
		},
		TransferFlat: decimal.Zero,
		Withdrawal: map[string]WithdrawalComponents{
			"CRYPTO_BTC": {
				ProcessingRate: decimal.RequireFromString("0.01"),
				NetworkFee:     decimal.RequireFromString("0.0005"),
				ServiceFee:     decimal.RequireFromString("2.5"),
				ComplianceRate: decimal.RequireFromString("0.005"),
			},
			"CRYPTO_ETH": {
				ProcessingRate: decimal.RequireFromString("0.01"),
				NetworkFee:     decimal.RequireFromString("0.002"),
				ServiceFee:     decimal.RequireFromString("2.5"),
				ComplianceRate: decimal.RequireFromString("0.005"),
			},
			"BANK_TRANSFER": {
				ProcessingRate: decimal.RequireFromString("0.02"),
				NetworkFee:     decimal.Zero,
				ServiceFee:     decimal.RequireFromString("5.0"),
				ComplianceRate: decimal.RequireFromString("0.01"),
			},
			"WIRE_TRANSFER": {
				ProcessingRate: decimal.RequireFromString("0.025"),
				NetworkFee:     decimal.Zero,
				ServiceFee:     decimal.RequireFromString("15.0"),
				ComplianceRate: decimal.RequireFromString("0.01"),
			},
		},
		DefaultWithdrawal: WithdrawalComponents{
			ProcessingRate: decimal.RequireFromString("0.015"),
			NetworkFee:     decimal.Zero,
			ServiceFee:     decimal.RequireFromString("3.0"),
			ComplianceRate: decimal.RequireFromString("0.005"),
		},
	}
}

// Decimals are strings in the YAML file; yaml.v2 has no text-unmarshal hook
// for decimal.Decimal.
type withdrawalComponentsFile struct {
	ProcessingRate string `yaml:"processing_rate"`
	NetworkFee     string `yaml:"network_fee"`
	ServiceFee     string `yaml:"service_fee"`
	ComplianceRate string `yaml:"compliance_rate"`
}

type scheduleFile struct {
	Rates             map[string]string                   `yaml:"rates"`
	TransferFlat      string                              `yaml:"transfer_flat"`
	Withdrawal        map[string]withdrawalComponentsFile `yaml:"withdrawal_methods"`
	DefaultWithdrawal *withdrawalComponentsFile           `yaml:"default_withdrawal"`
}

func parseDecimal(feesFile, field, value string) (decimal.Decimal, error) {
	if value == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid decimal for %s in %s: %q (%w)", field, feesFile, value, err)
	}
	return d, nil
}

func parseComponents(feesFile, method string, raw withdrawalComponentsFile) (WithdrawalComponents, error) {
	var c WithdrawalComponents
	var err error
	if c.ProcessingRate, err = parseDecimal(feesFile, method+".processing_rate", raw.ProcessingRate); err != nil {
		return c, err
	}
	if c.NetworkFee, err = parseDecimal(feesFile, method+".network_fee", raw.NetworkFee); err != nil {
		return c, err
	}
	if c.ServiceFee, err = parseDecimal(feesFile, method+".service_fee", raw.ServiceFee); err != nil {
		return c, err
	}
	if c.ComplianceRate, err = parseDecimal(feesFile, method+".compliance_rate", raw.ComplianceRate); err != nil {
		return c, err
	}
	return c, nil
}

// LoadSchedule reads a fee schedule from a YAML file. Missing sections fall
// back to the built-in defaults.
func LoadSchedule(feesFile string) (*Schedule, error) {
	data, err := os.ReadFile(feesFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read %s: %w", feesFile, err)
	}

	var parsed scheduleFile
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("unable to parse %s: %w", feesFile, err)
	}

	loaded := DefaultSchedule()

	if len(parsed.Rates) > 0 {
		loaded.Rates = make(map[models.OperationType]decimal.Decimal, len(parsed.Rates))
		for op, value := range parsed.Rates {
			rate, err := parseDecimal(feesFile, "rates."+op, value)
			if err != nil {
				return nil, err
			}
			loaded.Rates[models.OperationType(op)] = rate
		}
	}

	if parsed.TransferFlat != "" {
		if loaded.TransferFlat, err = parseDecimal(feesFile, "transfer_flat", parsed.TransferFlat); err != nil {
			return nil, err
		}
	}

	if len(parsed.Withdrawal) > 0 {
		loaded.Withdrawal = make(map[string]WithdrawalComponents, len(parsed.Withdrawal))
		for method, raw := range parsed.Withdrawal {
			components, err := parseComponents(feesFile, method, raw)
			if err != nil {
				return nil, err
			}
			loaded.Withdrawal[method] = components
		}
	}

	if parsed.DefaultWithdrawal != nil {
		if loaded.DefaultWithdrawal, err = parseComponents(feesFile, "default_withdrawal", *parsed.DefaultWithdrawal); err != nil {
			return nil, err
		}
	}

	return loaded, nil
}

// Calculator computes operation fees. It is stateless beyond the schedule:
// the same (amount, operation) inputs always produce the same fee.
type Calculator struct {
	schedule *Schedule
}

func NewCalculator(schedule *Schedule) *Calculator {
	if schedule == nil {
		schedule = DefaultSchedule()
	}
	return &Calculator{schedule: schedule}
}

// Rate returns the flat percentage rate for an operation type, zero when the
// operation has no rate-based fee.
func (c *Calculator) Rate(op models.OperationType) decimal.Decimal {
	return c.schedule.Rates[op]
}

// ComputeFee returns the fee for an amount under the given operation type.
// Transfers use the fixed unit fee; withdrawals are computed separately via
// WithdrawalBreakdown because they are composed of named components.
func (c *Calculator) ComputeFee(amount decimal.Decimal, op models.OperationType) decimal.Decimal {
	if op == models.OperationTransfer {
		return c.schedule.TransferFlat
	}
	return amount.Mul(c.schedule.Rates[op])
}

// WithdrawalBreakdown computes the named withdrawal fee components for a
// method, in display order: processing, network, service, compliance.
func (c *Calculator) WithdrawalBreakdown(amount decimal.Decimal, method string) models.FeeBreakdown {
	components, ok := c.schedule.Withdrawal[method]
	if !ok {
		components = c.schedule.DefaultWithdrawal
	}

	lines := []models.FeeLine{
		{Label: "Processing Fee", Amount: amount.Mul(components.ProcessingRate)},
		{Label: "Network Fee", Amount: components.NetworkFee},
		{Label: "Service Fee", Amount: components.ServiceFee},
		{Label: "Compliance Fee", Amount: amount.Mul(components.ComplianceRate)},
	}

	total := decimal.Zero
	for _, line := range lines {
		total = total.Add(line.Amount)
	}

	return models.FeeBreakdown{Lines: lines, Total: total}
}
