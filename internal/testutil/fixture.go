package testutil

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/kyleking/askdb/internal/types"
)

const sampleDDL = `
CREATE TABLE customers (
    customer_id INTEGER PRIMARY KEY,
    first_name TEXT,
    last_name TEXT,
    email TEXT,
    city TEXT,
    state TEXT,
    signup_date DATE
);

CREATE TABLE products (
    product_id INTEGER PRIMARY KEY,
    name TEXT,
    category TEXT,
    price REAL
);

CREATE TABLE orders (
    order_id INTEGER PRIMARY KEY,
    customer_id INTEGER,
    order_date DATE,
    status TEXT,
    FOREIGN KEY (customer_id) REFERENCES customers(customer_id)
);

CREATE TABLE order_items (
    order_item_id INTEGER PRIMARY KEY,
    order_id INTEGER,
    product_id INTEGER,
    quantity INTEGER,
    unit_price REAL,
    FOREIGN KEY (order_id) REFERENCES orders(order_id),
    FOREIGN KEY (product_id) REFERENCES products(product_id)
);
`

// Product revenue: Gizmo 100, Widget 70, Novel 45, Lamp 40.
// Monthly revenue in 2024: 2024-01 110, 2024-02 40, 2024-03 105.
// Customer spend: Grace 130, Ada 75, Alan 50.
var sampleInserts = []string{
	`INSERT INTO customers VALUES
		(1, 'Ada', 'Lovelace', 'ada@example.com', 'London', 'LDN', '2023-01-05'),
		(2, 'Grace', 'Hopper', 'grace@example.com', 'Arlington', 'VA', '2023-02-10'),
		(3, 'Alan', 'Turing', 'alan@example.com', 'Wilmslow', 'CHS', '2023-03-15')`,
	`INSERT INTO products VALUES
		(1, 'Widget', 'Gadgets', 10.0),
		(2, 'Gizmo', 'Gadgets', 25.0),
		(3, 'Novel', 'Books', 15.0),
		(4, 'Lamp', 'Home', 40.0)`,
	`INSERT INTO orders VALUES
		(1, 1, '2024-01-10', 'shipped'),
		(2, 2, '2024-01-20', 'shipped'),
		(3, 1, '2024-02-05', 'delivered'),
		(4, 3, '2024-03-12', 'pending'),
		(5, 2, '2024-03-30', 'delivered')`,
	`INSERT INTO order_items VALUES
		(1, 1, 1, 2, 10.0),
		(2, 1, 3, 1, 15.0),
		(3, 2, 2, 3, 25.0),
		(4, 3, 4, 1, 40.0),
		(5, 4, 1, 5, 10.0),
		(6, 5, 2, 1, 25.0),
		(7, 5, 3, 2, 15.0)`,
}

// SampleDBPath writes the four-table sample dataset to a temp file and returns its path
func SampleDBPath(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "sample.db")

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("failed to open sample database: %v", err)
	}
	defer db.Close()

	ctx := context.Background()

	if _, err := db.ExecContext(ctx, sampleDDL); err != nil {
		t.Fatalf("failed to create sample schema: %v", err)
	}

	for _, stmt := range sampleInserts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			t.Fatalf("failed to seed sample data: %v", err)
		}
	}

	return path
}

// OpenSampleDB returns a writable handle on a fresh sample dataset, closed at test cleanup
func OpenSampleDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", SampleDBPath(t))
	if err != nil {
		t.Fatalf("failed to open sample database: %v", err)
	}

	t.Cleanup(func() { _ = db.Close() })

	return db
}

// SampleSchema is the schema introspection reports for the sample dataset
func SampleSchema() types.Schema {
	return types.Schema{Tables: []types.Table{
		{Name: "customers", Columns: []types.Column{
			{Name: "customer_id", Type: "INTEGER"},
			{Name: "first_name", Type: "TEXT"},
			{Name: "last_name", Type: "TEXT"},
			{Name: "email", Type: "TEXT"},
			{Name: "city", Type: "TEXT"},
			{Name: "state", Type: "TEXT"},
			{Name: "signup_date", Type: "DATE"},
		}},
		{Name: "order_items", Columns: []types.Column{
			{Name: "order_item_id", Type: "INTEGER"},
			{Name: "order_id", Type: "INTEGER"},
			{Name: "product_id", Type: "INTEGER"},
			{Name: "quantity", Type: "INTEGER"},
			{Name: "unit_price", Type: "REAL"},
		}},
		{Name: "orders", Columns: []types.Column{
			{Name: "order_id", Type: "INTEGER"},
			{Name: "customer_id", Type: "INTEGER"},
			{Name: "order_date", Type: "DATE"},
			{Name: "status", Type: "TEXT"},
		}},
		{Name: "products", Columns: []types.Column{
			{Name: "product_id", Type: "INTEGER"},
			{Name: "name", Type: "TEXT"},
			{Name: "category", Type: "TEXT"},
			{Name: "price", Type: "REAL"},
		}},
	}}
}
