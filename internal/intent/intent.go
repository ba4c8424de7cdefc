// Package intent recognises the fixed set of question shapes askdb can answer
// without a language model and renders SQL for them.
package intent

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Kind identifies a recognised question shape
type Kind int

const (
	Unrecognized Kind = iota
	TopProductsByRevenue
	OrdersLastMonth
	RevenueByMonth
	TopCustomersBySpend
	TopCategoryByAverageOrderValue
	EntityCount
)

func (k Kind) String() string {
	switch k {
	case TopProductsByRevenue:
		return "top_products_by_revenue"
	case OrdersLastMonth:
		return "orders_last_month"
	case RevenueByMonth:
		return "revenue_by_month"
	case TopCustomersBySpend:
		return "top_customers_by_spend"
	case TopCategoryByAverageOrderValue:
		return "top_category_by_average_order_value"
	case EntityCount:
		return "entity_count"
	default:
		return "unrecognized"
	}
}

// DefaultTopK is used when a ranking question names no count
const DefaultTopK = 5

// Intent is a recognised question plus the parameters its template needs
type Intent struct {
	Kind  Kind      `json:"kind"`
	K     int       `json:"k,omitempty"`
	Year  int       `json:"year,omitempty"`
	Table string    `json:"table,omitempty"`
	Start time.Time `json:"start,omitempty"`
	End   time.Time `json:"end,omitempty"`
}

type rule struct {
	name  string
	match func(q string) bool
	build func(q string, today time.Time) Intent
}

// countTables is the order EntityCount checks table names in
var countTables = []string{"customers", "orders", "products"}

// rules is evaluated top to bottom; the first match wins
var rules = []rule{
	{
		name: "top products by revenue",
		match: func(q string) bool {
			return containsAll(q, "top", "products") && containsAny(q, "revenue", "sales")
		},
		build: func(q string, _ time.Time) Intent {
			return Intent{Kind: TopProductsByRevenue, K: topK(q)}
		},
	},
	{
		name: "orders last month",
		match: func(q string) bool {
			return strings.Contains(q, "how many orders") && containsAny(q, "last month", "previous month")
		},
		build: func(_ string, today time.Time) Intent {
			start, end := PreviousMonth(today)
			return Intent{Kind: OrdersLastMonth, Start: start, End: end}
		},
	},
	{
		name: "revenue by month",
		match: func(q string) bool {
			return containsAny(q, "total revenue by month", "revenue by month")
		},
		build: func(q string, today time.Time) Intent {
			return Intent{Kind: RevenueByMonth, Year: year(q, today)}
		},
	},
	{
		name: "top customers by spend",
		match: func(q string) bool {
			return containsAll(q, "top", "customers") && containsAny(q, "spent", "revenue", "sales")
		},
		build: func(q string, _ time.Time) Intent {
			return Intent{Kind: TopCustomersBySpend, K: topK(q)}
		},
	},
	{
		name: "category by average order value",
		match: func(q string) bool {
			return strings.Contains(q, "category") &&
				containsAny(q, "highest", "best") &&
				containsAny(q, "average order value", "aov")
		},
		build: func(_ string, _ time.Time) Intent {
			return Intent{Kind: TopCategoryByAverageOrderValue}
		},
	},
	{
		name: "entity count",
		match: func(q string) bool {
			return countTable(q) != ""
		},
		build: func(q string, _ time.Time) Intent {
			return Intent{Kind: EntityCount, Table: countTable(q)}
		},
	},
}

// Match maps a question to exactly one Intent. Matching is case-insensitive
// substring search; today anchors relative dates and the default year.
func Match(question string, today time.Time) Intent {
	q := strings.ToLower(question)

	for _, r := range rules {
		if r.match(q) {
			return r.build(q, today)
		}
	}

	return Intent{Kind: Unrecognized}
}

// RuleNames lists the rules in evaluation order
func RuleNames() []string {
	names := make([]string, len(rules))
	for i, r := range rules {
		names[i] = r.name
	}

	return names
}

// Matcher binds Match to a clock
type Matcher struct {
	now func() time.Time
}

// Option configures a Matcher
type Option func(*Matcher)

// WithClock overrides the source of "today"
func WithClock(now func() time.Time) Option {
	return func(m *Matcher) {
		m.now = now
	}
}

// NewMatcher returns a Matcher using the system clock unless overridden
func NewMatcher(opts ...Option) *Matcher {
	m := &Matcher{now: time.Now}
	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Match recognises question relative to the matcher's clock
func (m *Matcher) Match(question string) Intent {
	return Match(question, m.now())
}

// Translate matches question and renders its SQL
func (m *Matcher) Translate(question string) (Intent, string) {
	in := m.Match(question)
	return in, Render(in)
}

// PreviousMonth returns the first and last day of the calendar month before today
func PreviousMonth(today time.Time) (time.Time, time.Time) {
	first := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC)
	start := first.AddDate(0, -1, 0)
	end := first.AddDate(0, 0, -1)

	return start, end
}

var (
	topPattern  = regexp.MustCompile(`top\s+(\d+)`)
	yearPattern = regexp.MustCompile(`\d{4}`)
)

func topK(q string) int {
	m := topPattern.FindStringSubmatch(q)
	if m == nil {
		return DefaultTopK
	}

	k, err := strconv.Atoi(m[1])
	if err != nil {
		return DefaultTopK
	}

	return k
}

func year(q string, today time.Time) int {
	m := yearPattern.FindString(q)
	if m == "" {
		return today.Year()
	}

	y, err := strconv.Atoi(m)
	if err != nil {
		return today.Year()
	}

	return y
}

func countTable(q string) string {
	if !strings.Contains(q, "count") {
		return ""
	}

	for _, table := range countTables {
		if strings.Contains(q, table) {
			return table
		}
	}

	return ""
}

func containsAll(s string, subs ...string) bool {
	for _, sub := range subs {
		if !strings.Contains(s, sub) {
			return false
		}
	}

	return true
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}

	return false
}
