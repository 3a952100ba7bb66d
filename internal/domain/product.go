package domain

// AnyVariant is the implicit stock key of products without variants.
const AnyVariant = "any"

// VariantPolicy says whether a category's products are sold per variant.
type VariantPolicy int

const (
	// VariantNone products have a single implicit "any" variant.
	VariantNone VariantPolicy = iota
	// VariantRequired products must be added with one of their declared variants.
	VariantRequired
)

func (p VariantPolicy) String() string {
	if p == VariantRequired {
		return "required"
	}
	return "none"
}

// Categories sold by size.
const (
	CategoryShirts   = "Camisetas"
	CategoryFootwear = "Calzado"
)

var categoryPolicies = map[string]VariantPolicy{
	CategoryShirts:   VariantRequired,
	CategoryFootwear: VariantRequired,
}

// VariantPolicyFor returns the variant policy of a category. Unknown categories have
// no variants.
func VariantPolicyFor(category string) VariantPolicy {
	return categoryPolicies[category]
}

// Product is the catalog's read-only view of an item for sale.
type Product struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Category    string         `json:"category"`
	League      string         `json:"league,omitempty"`
	Image       string         `json:"image,omitempty"`
	PriceCents  int64          `json:"price_cents"`
	Variants    []string       `json:"variants,omitempty"`
	Stock       map[string]int `json:"stock"`
	Active      bool           `json:"active"`
}

// Policy returns the product's variant policy.
func (p *Product) Policy() VariantPolicy {
	return VariantPolicyFor(p.Category)
}

// ResolveVariant validates a requested variant against the product's policy and returns
// the stock key to reserve against.
func (p *Product) ResolveVariant(variant *string) (string, error) {
	switch p.Policy() {
	case VariantRequired:
		if variant == nil || *variant == "" {
			return "", ErrVariantRequired
		}
		for _, v := range p.Variants {
			if v == *variant {
				return v, nil
			}
		}
		return "", ErrVariantInvalid.Withf("variant %q is not available for this product", *variant)
	default:
		if variant != nil && *variant != "" && *variant != AnyVariant {
			return "", ErrVariantInvalid.Withf("product does not have variants")
		}
		return AnyVariant, nil
	}
}

// StockCells lists the (variant, quantity) stock cells the product declares.
func (p *Product) StockCells() map[string]int {
	cells := make(map[string]int, len(p.Stock))
	if p.Policy() == VariantRequired {
		for _, v := range p.Variants {
			cells[v] = p.Stock[v]
		}
		return cells
	}
	cells[AnyVariant] = p.Stock[AnyVariant]
	return cells
}
