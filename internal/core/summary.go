package core

import "sort"

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string
	Amount Money
	Count  int
}

// MonthSummary is the analytics view of one user's month.
type MonthSummary struct {
	Year       int
	Month      int // 1-12
	Total      Money
	Count      int
	ByCategory []CategoryAmount
}

// Summarize folds expenses into a MonthSummary. Expenses outside year/month are ignored.
// Categories are ordered by amount descending, then by name.
func Summarize(year, month int, items []Expense) MonthSummary {
	out := MonthSummary{Year: year, Month: month}
	idx := map[string]int{}
	for _, e := range items {
		if e.Date.Year() != year || int(e.Date.Month()) != month {
			continue
		}
		out.Total.Cents += e.Amount.Cents
		out.Count++
		i, ok := idx[e.Category]
		if !ok {
			i = len(out.ByCategory)
			idx[e.Category] = i
			out.ByCategory = append(out.ByCategory, CategoryAmount{Name: e.Category})
		}
		out.ByCategory[i].Amount.Cents += e.Amount.Cents
		out.ByCategory[i].Count++
	}
	sort.SliceStable(out.ByCategory, func(a, b int) bool {
		ca, cb := out.ByCategory[a], out.ByCategory[b]
		if ca.Amount.Cents != cb.Amount.Cents {
			return ca.Amount.Cents > cb.Amount.Cents
		}
		return ca.Name < cb.Name
	})
	return out
}
