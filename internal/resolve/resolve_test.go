package resolve

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEqualFoldOrPlural(t *testing.T) {
	require.True(t, EqualFoldOrPlural("Customer", "customer"))
	// a matches when a equals b with a trailing "s": the plural form is
	// the first argument, the singular the second.
	require.True(t, EqualFoldOrPlural("Customers", "customer"))
	require.False(t, EqualFoldOrPlural("Customer", "customers"))
	require.False(t, EqualFoldOrPlural("Customerz", "customer"))
}

func TestSimpleName(t *testing.T) {
	require.Equal(t, "Customer", SimpleName("Shop.Domain.Customer"))
	require.Equal(t, "Customer", SimpleName("Customer"))
}

func TestEntityMapLookupDoesNotTryPlural(t *testing.T) {
	// Map key is the plural form of the type name (e.g. an entity class
	// named Customers); the query is the singular class name.
	m := EntityMap{"Customers": {Schema: "dbo", Table: "Customer"}}
	_, ok := m.Lookup("Customer")
	require.False(t, ok, "Lookup must not apply the plural heuristic")

	ref, ok := m.LookupWithPlural("Customer")
	require.True(t, ok)
	require.Equal(t, "dbo.Customer", ref.String())
}

func TestEntityMapLookupExactAndCaseInsensitive(t *testing.T) {
	// Callers insert both the full and simple forms of the type name, as
	// efgraph's collectTableAttributeMappings/collectFluentToTableMappings
	// do; Lookup matches either form, case-insensitively.
	m := EntityMap{
		"Shop.Domain.Order": {Schema: "sales", Table: "Orders"},
		"Order":             {Schema: "sales", Table: "Orders"},
	}

	ref, ok := m.Lookup("Shop.Domain.Order")
	require.True(t, ok)
	require.Equal(t, "sales.Orders", ref.String())

	ref, ok = m.Lookup("order")
	require.True(t, ok)
	require.Equal(t, "sales.Orders", ref.String())
}
