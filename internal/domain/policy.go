package domain

import "github.com/shopspring/decimal"

// DefaultBranch is assigned to accounts opened without an explicit branch
const DefaultBranch = "Main Branch"

// Policy carries the bank-wide parameters that the account kinds depend on.
// Rates are per interest period (monthly).
type Policy struct {
	Branch                   string
	SavingsRateIndividual    decimal.Decimal
	SavingsRateBusiness      decimal.Decimal
	InvestmentRateIndividual decimal.Decimal
	InvestmentRateBusiness   decimal.Decimal
	ChequeOverdraftLimit     decimal.Decimal
	InvestmentMinimumDeposit decimal.Decimal
	InvestmentMinimumBalance decimal.Decimal
}

// DefaultPolicy returns the parameters the bank ships with
func DefaultPolicy() Policy {
	return Policy{
		Branch:                   DefaultBranch,
		SavingsRateIndividual:    decimal.RequireFromString("0.0005"),
		SavingsRateBusiness:      decimal.RequireFromString("0.001"),
		InvestmentRateIndividual: decimal.RequireFromString("0.05"),
		InvestmentRateBusiness:   decimal.RequireFromString("0.06"),
		ChequeOverdraftLimit:     decimal.NewFromInt(500),
		InvestmentMinimumDeposit: decimal.NewFromInt(500),
		InvestmentMinimumBalance: decimal.NewFromInt(1000),
	}
}

// SavingsRate returns the savings rate for the customer tier
func (p Policy) SavingsRate(kind CustomerKind) decimal.Decimal {
	if kind == CustomerKindBusiness {
		return p.SavingsRateBusiness
	}
	return p.SavingsRateIndividual
}

// InvestmentRate returns the investment rate for the customer tier
func (p Policy) InvestmentRate(kind CustomerKind) decimal.Decimal {
	if kind == CustomerKindBusiness {
		return p.InvestmentRateBusiness
	}
	return p.InvestmentRateIndividual
}

// NewTerms builds the terms of a new account of the given kind for a customer tier.
// Cheque accounts take their employer details from employerName and employerAddress.
func (p Policy) NewTerms(kind AccountKind, customerKind CustomerKind, employerName, employerAddress string) (AccountTerms, error) {
	switch kind {
	case AccountKindSavings:
		return SavingsTerms{InterestRate: p.SavingsRate(customerKind)}, nil
	case AccountKindCheque:
		return ChequeTerms{
			OverdraftLimit:  p.ChequeOverdraftLimit,
			EmployerName:    employerName,
			EmployerAddress: employerAddress,
		}, nil
	case AccountKindInvestment:
		return InvestmentTerms{
			InterestRate:   p.InvestmentRate(customerKind),
			MinimumBalance: p.InvestmentMinimumBalance,
		}, nil
	default:
		return nil, ErrUnknownKind
	}
}
