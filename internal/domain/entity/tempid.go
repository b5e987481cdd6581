package entity

import "strings"

// TempID is a string-tagged identifier used only during the in-memory phase
// of a scan, before canonical rows exist. It correlates products, variants,
// and inventory levels fetched from a platform before they are persisted and
// assigned real uuid.UUID identities.
//
// TempID is intentionally not a uuid.UUID and has no conversion to one: a
// scan that tries to write a TempID to the store is a compile error, not a
// runtime check.
type TempID string

// TempProductID builds the temporary id for a platform product.
func TempProductID(platformProductID string) TempID {
	return TempID("temp-product-" + platformProductID)
}

// TempVariantID builds the temporary id for a platform variant.
func TempVariantID(platformVariantID string) TempID {
	return TempID("temp-variant-" + platformVariantID)
}

// IsTemp reports whether s looks like a temporary id, for assertions in
// tests and defensive checks at the persistence boundary.
func IsTemp(s string) bool {
	return strings.HasPrefix(s, "temp-product-") || strings.HasPrefix(s, "temp-variant-")
}
