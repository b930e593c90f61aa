package efgraph

import (
	"testing"

	"github.com/stretchr/testify/require"

	"codegraph/internal/artifact"
	"codegraph/internal/csast"
	"codegraph/internal/model"
)

func parseCSFile(t *testing.T, path, src string) *csast.File {
	t.Helper()
	f, err := csast.Parse(path, []byte(src))
	require.NoError(t, err)
	return f
}

func newTestBuilder(t *testing.T, cfg Config) (*Builder, *model.GraphModel) {
	t.Helper()
	bw, err := artifact.NewBodyWriter(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { bw.Close() })

	m := model.NewGraphModel()
	return NewBuilder(m, bw, cfg), m
}

const entitySource = `
namespace Shop.Domain {
    [Table("Customers", Schema = "sales")]
    public class Customer : BaseEntity {
        public int Id { get; set; }
        public string Name { get; set; }
    }

    public class Order : BaseEntity {
        public int Id { get; set; }
        public int CustomerId { get; set; }
    }
}
`

const dbContextSource = `
namespace Shop.Data {
    public class ShopContext : DbContext {
        public DbSet<Customer> Customers { get; set; }
        public DbSet<Order> Orders { get; set; }

        protected void OnModelCreating(ModelBuilder modelBuilder) {
            modelBuilder.Entity<Order>().HasOne(o => o.Customer).WithMany(c => c.Orders).HasForeignKey(o => o.CustomerId);
        }
    }
}
`

func TestS3EntityTableAttributeMapping(t *testing.T) {
	entities := parseCSFile(t, "Customer.cs", entitySource)

	b, m := newTestBuilder(t, Config{EntityBaseTypes: []string{"BaseEntity"}})
	files := []*csast.File{entities}
	rel := map[*csast.File]string{entities: "Domain/Customer.cs"}
	b.Build(files, rel)
	m.Finalize()

	ref, ok := b.entityMap.Lookup("Customer")
	require.True(t, ok)
	require.Equal(t, "sales", ref.Schema)
	require.Equal(t, "Customers", ref.Table)

	var foundCustomerEntity bool
	for _, n := range m.Nodes() {
		if n.Kind == model.KindEntity && n.Name == "Customer" {
			foundCustomerEntity = true
		}
	}
	require.True(t, foundCustomerEntity)
}

func TestS3DbSetBindingAndFluentForeignKey(t *testing.T) {
	entities := parseCSFile(t, "Customer.cs", entitySource)
	ctx := parseCSFile(t, "ShopContext.cs", dbContextSource)

	b, m := newTestBuilder(t, Config{EntityBaseTypes: []string{"BaseEntity"}})
	files := []*csast.File{entities, ctx}
	rel := map[*csast.File]string{
		entities: "Domain/Customer.cs",
		ctx:      "Data/ShopContext.cs",
	}
	b.Build(files, rel)
	m.Finalize()

	nodes := m.Nodes()
	var foundDbSet, foundOrderTable bool
	for _, n := range nodes {
		if n.Kind == model.KindDbSet && n.Name == "Customers" {
			foundDbSet = true
		}
		if n.Kind == model.KindTable && n.Name == "Order" {
			foundOrderTable = true
		}
	}
	require.True(t, foundDbSet, "expected a DBSET node for ShopContext.Customers")
	require.True(t, foundOrderTable, "expected Order to fall back to dbo.Order via entity detection")

	var foundFK bool
	for _, e := range m.Edges() {
		if e.Relation == model.RelForeignKey {
			foundFK = true
		}
	}
	require.True(t, foundFK, "expected a ForeignKey edge from the HasOne/HasForeignKey chain")
}
