package model

type PlanDuration string

const (
	PlanOneMonth    PlanDuration = "ONE_MONTH"
	PlanThreeMonths PlanDuration = "THREE_MONTHS"
	PlanSixMonths   PlanDuration = "SIX_MONTHS"
)

// Days returns the subscription length for the duration class.
func (d PlanDuration) Days() int {
	switch d {
	case PlanThreeMonths:
		return 90
	case PlanSixMonths:
		return 180
	default:
		return 30
	}
}

// ServicePlan is an immutable catalog entry. Text fields are bilingual;
// pick with Name(lang) etc.
type ServicePlan struct {
	ID            string
	NameEN        string
	NameMM        string
	Price         int64 // MMK
	Currency      string
	DurationEN    string
	DurationMM    string
	Duration      PlanDuration
	DataLimitEN   string
	DataLimitMM   string
	DescriptionEN string
	DescriptionMM string
}

func (p ServicePlan) Name(lang string) string {
	if lang == "mm" {
		return p.NameMM
	}
	return p.NameEN
}

func (p ServicePlan) DataLimit(lang string) string {
	if lang == "mm" {
		return p.DataLimitMM
	}
	return p.DataLimitEN
}

func (p ServicePlan) DurationText(lang string) string {
	if lang == "mm" {
		return p.DurationMM
	}
	return p.DurationEN
}

func (p ServicePlan) Description(lang string) string {
	if lang == "mm" {
		return p.DescriptionMM
	}
	return p.DescriptionEN
}

// DiscountedPrice applies a percentage discount, floored to whole MMK.
func (p ServicePlan) DiscountedPrice(discountPercent int) int64 {
	if discountPercent <= 0 {
		return p.Price
	}
	if discountPercent >= 100 {
		return 0
	}
	return p.Price * int64(100-discountPercent) / 100
}
