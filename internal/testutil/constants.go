// Package testutil provides the sample dataset fixture, mocks and helpers for tests
package testutil

import "time"

const (
	// TestTimeout is the default timeout for test operations
	TestTimeout = 30 * time.Second

	// ShortTestTimeout is a shorter timeout for quick operations
	ShortTestTimeout = 5 * time.Second
)

// Row counts of the sample dataset
const (
	SampleCustomerCount  = 3
	SampleProductCount   = 4
	SampleOrderCount     = 5
	SampleOrderItemCount = 7
)

// SampleTables lists the fixture tables in the order introspection returns them
var SampleTables = []string{"customers", "order_items", "orders", "products"}
