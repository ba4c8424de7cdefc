package intent

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRenderTopProducts(t *testing.T) {
	sql := Render(Match("Show me the top 3 products by revenue", today))

	assert.Contains(t, sql, "FROM order_items oi")
	assert.Contains(t, sql, "JOIN products p")
	assert.Contains(t, sql, "SUM(oi.quantity * oi.unit_price) AS revenue")
	assert.Contains(t, sql, "ORDER BY revenue DESC")
	assert.True(t, strings.HasSuffix(sql, "LIMIT 3"))
}

func TestRenderOrdersLastMonth(t *testing.T) {
	sql := Render(Match("How many orders did we get last month?", day(2024, time.March, 10)))

	assert.Contains(t, sql, "COUNT(*) AS orders_last_month")
	assert.Contains(t, sql, "FROM orders")
	assert.Contains(t, sql, "WHERE order_date BETWEEN '2024-02-01' AND '2024-02-29'")
}

func TestRenderRevenueByMonth(t *testing.T) {
	sql := Render(Match("List total revenue by month for 2024.", today))

	assert.Contains(t, sql, "strftime('%Y-%m', o.order_date) AS ym")
	assert.Contains(t, sql, "WHERE strftime('%Y', o.order_date) = '2024'")
	assert.Contains(t, sql, "GROUP BY ym")
	assert.Contains(t, sql, "ORDER BY ym ASC")
	assert.NotContains(t, sql, "%!")
}

func TestRenderTopCustomers(t *testing.T) {
	sql := Render(Match("top 4 customers by total spent", today))

	assert.Contains(t, sql, "c.first_name || ' ' || c.last_name AS customer")
	assert.Contains(t, sql, "ORDER BY total_spent DESC")
	assert.True(t, strings.HasSuffix(sql, "LIMIT 4"))
}

func TestRenderTopCategory(t *testing.T) {
	sql := Render(Intent{Kind: TopCategoryByAverageOrderValue})

	assert.True(t, strings.HasPrefix(sql, "WITH order_totals AS ("))
	assert.Contains(t, sql, "MAX(p.category) AS category")
	assert.Contains(t, sql, "AVG(ot.order_total) AS avg_order_value")
	assert.NotContains(t, sql, "--")
	assert.True(t, strings.HasSuffix(sql, "LIMIT 5"))
}

func TestRenderEntityCount(t *testing.T) {
	assert.Equal(t, "SELECT COUNT(*) AS customer_count FROM customers", Render(Intent{Kind: EntityCount, Table: "customers"}))
	assert.Equal(t, "SELECT COUNT(*) AS order_count FROM orders", Render(Intent{Kind: EntityCount, Table: "orders"}))
	assert.Equal(t, "SELECT COUNT(*) AS product_count FROM products", Render(Intent{Kind: EntityCount, Table: "products"}))
}

func TestRenderUnrecognized(t *testing.T) {
	assert.Equal(t, "SELECT 1 AS result", Render(Match("asdf qwerty", today)))
	assert.Equal(t, FallbackSQL, Render(Intent{}))
}

func TestRenderIsDeterministic(t *testing.T) {
	questions := []string{
		"Show me the top 3 products by revenue",
		"How many orders did we get last month?",
		"List total revenue by month for 2024.",
		"top customers by sales",
		"category with best aov",
		"orders count",
		"hello",
	}

	for _, q := range questions {
		assert.Equal(t, Render(Match(q, today)), Render(Match(q, today)), q)
	}
}
