package intent

import (
	"fmt"
	"strings"
)

const dateLayout = "2006-01-02"

const topProductsSQL = `SELECT p.product_id, p.name AS product_name, p.category, SUM(oi.quantity * oi.unit_price) AS revenue
FROM order_items oi
JOIN products p ON p.product_id = oi.product_id
GROUP BY p.product_id, p.name, p.category
ORDER BY revenue DESC
LIMIT %d`

const ordersLastMonthSQL = `SELECT COUNT(*) AS orders_last_month
FROM orders
WHERE order_date BETWEEN '%s' AND '%s'`

const revenueByMonthSQL = `SELECT strftime('%%Y-%%m', o.order_date) AS ym,
       SUM(oi.quantity * oi.unit_price) AS revenue
FROM orders o
JOIN order_items oi ON oi.order_id = o.order_id
WHERE strftime('%%Y', o.order_date) = '%d'
GROUP BY ym
ORDER BY ym ASC`

const topCustomersSQL = `SELECT c.customer_id, c.first_name || ' ' || c.last_name AS customer, SUM(oi.quantity * oi.unit_price) AS total_spent
FROM customers c
JOIN orders o ON o.customer_id = c.customer_id
JOIN order_items oi ON oi.order_id = o.order_id
GROUP BY c.customer_id, customer
ORDER BY total_spent DESC
LIMIT %d`

const topCategoryByAOVSQL = `WITH order_totals AS (
  SELECT o.order_id, SUM(oi.quantity * oi.unit_price) AS order_total
  FROM orders o
  JOIN order_items oi ON oi.order_id = o.order_id
  GROUP BY o.order_id
),
order_category AS (
  SELECT o.order_id, MAX(p.category) AS category
  FROM orders o
  JOIN order_items oi ON oi.order_id = o.order_id
  JOIN products p ON p.product_id = oi.product_id
  GROUP BY o.order_id
)
SELECT oc.category, AVG(ot.order_total) AS avg_order_value
FROM order_totals ot
JOIN order_category oc ON oc.order_id = ot.order_id
GROUP BY oc.category
ORDER BY avg_order_value DESC
LIMIT 5`

// FallbackSQL is rendered for questions no rule recognises
const FallbackSQL = "SELECT 1 AS result"

// Render returns the SQLite query for in
func Render(in Intent) string {
	switch in.Kind {
	case TopProductsByRevenue:
		return fmt.Sprintf(topProductsSQL, in.K)
	case OrdersLastMonth:
		return fmt.Sprintf(ordersLastMonthSQL, in.Start.Format(dateLayout), in.End.Format(dateLayout))
	case RevenueByMonth:
		return fmt.Sprintf(revenueByMonthSQL, in.Year)
	case TopCustomersBySpend:
		return fmt.Sprintf(topCustomersSQL, in.K)
	case TopCategoryByAverageOrderValue:
		return topCategoryByAOVSQL
	case EntityCount:
		return fmt.Sprintf("SELECT COUNT(*) AS %s_count FROM %s", strings.TrimSuffix(in.Table, "s"), in.Table)
	default:
		return FallbackSQL
	}
}
