// Package db provides embedded database schema files.
package db

import _ "embed"

// Orders contains the DDL for the orders relation. It is safe to execute
// repeatedly.
//
//go:embed schema/orders.sql
var Orders string

// Collaborators contains the DDL for the users, customers and menu_items
// relations owned by sibling modules. It is used for local setups and tests.
//
//go:embed schema/collaborators.sql
var Collaborators string

// LineItems contains the DDL for the order_items relation. It references
// orders, so it must run after Orders.
//
//go:embed schema/order_items.sql
var LineItems string
