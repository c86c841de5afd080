package models

// Plan периодичность платной подписки.
type Plan string

const (
	// PlanMonthly ежемесячная подписка.
	PlanMonthly Plan = "monthly"
	// PlanAnnual годовая подписка.
	PlanAnnual Plan = "annual"
)

// Valid проверяет, что план поддерживается.
func (p Plan) Valid() bool {
	return p == PlanMonthly || p == PlanAnnual
}
