package core

// CategoryAmount is a per-category rollup for a month.
type CategoryAmount struct {
	Name   string
	Amount Money
}

// MonthOverview aggregates a user's cash flow for one calendar month.
type MonthOverview struct {
	Year       int
	Month      int
	Income     Money
	Expense    Money
	ByCategory []CategoryAmount
}

// Net returns income minus expense for the month.
func (o MonthOverview) Net() int64 {
	return o.Income.Centavos - o.Expense.Centavos
}
