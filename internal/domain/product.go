package domain

// TenantGlobal groups products whose owning-tenant field is absent.
// Such records still count; they are never silently dropped.
const TenantGlobal = "global"

// Product is the projection of a catalog record the scanner works with.
// Fields holds the raw document attributes so the classifier can resolve
// the expiry instant from whichever historical field spelling is present.
type Product struct {
	ProductID string         `json:"id"`
	TenantID  string         `json:"tenant_id"`
	Name      string         `json:"name"`
	Fields    map[string]any `json:"-"`
}

// ProductRef identifies a product that contributed to a tenant aggregate.
type ProductRef struct {
	ProductID string `json:"id"`
	Name      string `json:"name"`
	Expired   bool   `json:"expired"`
}

// TenantAggregate is the per-tenant result of one catalog scan.
type TenantAggregate struct {
	ExpiredCount int          `json:"expired"`
	NearCount    int          `json:"near"`
	Products     []ProductRef `json:"products,omitempty"`
}

// Empty reports whether the aggregate carries nothing worth notifying about.
func (a *TenantAggregate) Empty() bool {
	return a.ExpiredCount == 0 && a.NearCount == 0
}
