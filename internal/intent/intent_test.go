package intent

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

var today = day(2025, time.June, 18)

func TestMatchPriority(t *testing.T) {
	tests := []struct {
		question string
		kind     Kind
	}{
		{"Show me the top 3 products by revenue", TopProductsByRevenue},
		{"top products by SALES", TopProductsByRevenue},
		{"How many orders did we get last month?", OrdersLastMonth},
		{"how many orders in the previous month", OrdersLastMonth},
		{"List total revenue by month for 2024.", RevenueByMonth},
		{"revenue by month", RevenueByMonth},
		{"Who are the top 10 customers by amount spent?", TopCustomersBySpend},
		{"top customers by revenue", TopCustomersBySpend},
		{"Which category has the highest average order value?", TopCategoryByAverageOrderValue},
		{"best category by aov", TopCategoryByAverageOrderValue},
		{"customers count", EntityCount},
		{"what is the weather", Unrecognized},
		{"", Unrecognized},

		// Overlapping keywords resolve by rule order
		{"top products and top customers by revenue", TopProductsByRevenue},
		{"how many orders last month and revenue by month", OrdersLastMonth},
		{"revenue by month for top customers by revenue", RevenueByMonth},
		{"count the top products by revenue", TopProductsByRevenue},

		// Near misses fall through
		{"top products", Unrecognized},
		{"how many orders were placed", Unrecognized},
		{"top customers", Unrecognized},
		{"highest category", Unrecognized},
	}

	for _, tt := range tests {
		t.Run(tt.question, func(t *testing.T) {
			assert.Equal(t, tt.kind, Match(tt.question, today).Kind)
		})
	}
}

func TestEntityCountTableOrder(t *testing.T) {
	tests := []struct {
		question string
		table    string
	}{
		{"count of customers", "customers"},
		{"count orders", "orders"},
		{"product count: products", "products"},
		{"count products and orders and customers", "customers"},
		{"count orders and products", "orders"},
	}

	for _, tt := range tests {
		t.Run(tt.question, func(t *testing.T) {
			in := Match(tt.question, today)
			require.Equal(t, EntityCount, in.Kind)
			assert.Equal(t, tt.table, in.Table)
		})
	}

	// "product count" without the plural table name is not recognised
	assert.Equal(t, Unrecognized, Match("product count", today).Kind)
}

func TestTopKExtraction(t *testing.T) {
	assert.Equal(t, 3, Match("Show me the top 3 products by revenue", today).K)
	assert.Equal(t, 12, Match("top   12 customers who spent the most", today).K)
	assert.Equal(t, DefaultTopK, Match("top products by revenue", today).K)
	assert.Equal(t, DefaultTopK, Match("top-3 products by revenue", today).K)
}

func TestYearExtraction(t *testing.T) {
	assert.Equal(t, 2024, Match("List total revenue by month for 2024.", today).Year)
	assert.Equal(t, 2025, Match("revenue by month", today).Year)
	assert.Equal(t, 2019, Match("revenue by month 2019 vs 2020", today).Year)
}

func TestPreviousMonth(t *testing.T) {
	tests := []struct {
		name  string
		today time.Time
		start time.Time
		end   time.Time
	}{
		{"january rolls back a year", day(2025, time.January, 15), day(2024, time.December, 1), day(2024, time.December, 31)},
		{"leap february", day(2024, time.March, 10), day(2024, time.February, 1), day(2024, time.February, 29)},
		{"non-leap february", day(2023, time.March, 31), day(2023, time.February, 1), day(2023, time.February, 28)},
		{"century non-leap", day(2100, time.March, 1), day(2100, time.February, 1), day(2100, time.February, 28)},
		{"thirty day month", day(2025, time.May, 31), day(2025, time.April, 1), day(2025, time.April, 30)},
		{"first of month", day(2025, time.August, 1), day(2025, time.July, 1), day(2025, time.July, 31)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end := PreviousMonth(tt.today)
			assert.Equal(t, tt.start, start)
			assert.Equal(t, tt.end, end)
		})
	}
}

func TestMatcherWithClock(t *testing.T) {
	m := NewMatcher(WithClock(func() time.Time { return day(2025, time.January, 15) }))

	in, sql := m.Translate("How many orders did we get last month?")
	assert.Equal(t, OrdersLastMonth, in.Kind)
	assert.Contains(t, sql, "BETWEEN '2024-12-01' AND '2024-12-31'")

	in = m.Match("revenue by month")
	assert.Equal(t, 2025, in.Year)
}

func TestRuleNames(t *testing.T) {
	assert.Equal(t, []string{
		"top products by revenue",
		"orders last month",
		"revenue by month",
		"top customers by spend",
		"category by average order value",
		"entity count",
	}, RuleNames())
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "top_products_by_revenue", TopProductsByRevenue.String())
	assert.Equal(t, "entity_count", EntityCount.String())
	assert.Equal(t, "unrecognized", Unrecognized.String())
}
