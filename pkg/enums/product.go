package enums

// ProductStatus tracks catalog visibility. Deleted products stay in the table
// so order history keeps its references.
type ProductStatus string

const (
	ProductStatusActive  ProductStatus = "active"
	ProductStatusDeleted ProductStatus = "deleted"
)

var productStatuses = newValueSet("product status", false, ProductStatusActive, ProductStatusDeleted)

func (s ProductStatus) String() string { return string(s) }

func (s ProductStatus) IsValid() bool { return productStatuses.contains(s) }

func ParseProductStatus(value string) (ProductStatus, error) {
	return productStatuses.parse(value)
}
