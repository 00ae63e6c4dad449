package board

import "fmt"

// Pebble key schema
// 1. Prefix-based for range scans (all declarations of an offer)
// 2. Zero-padded timestamps for lexicographic time ordering
// 3. Offer ID as the grouping key for cascade deletes

const (
	prefixOffer       = "offer:" // offer records
	prefixDeclaration = "decl:"  // declaration records, grouped by offer
)

// offerKey returns the key for an offer record.
// Format: "offer:{offerID}"
func offerKey(offerID string) []byte {
	return []byte(prefixOffer + offerID)
}

// declarationKey returns the key for a declaration record.
// Format: "decl:{offerID}:{createdAt:020d}:{declarationID}"
// The timestamp component keeps per-offer scans in creation order.
func declarationKey(offerID string, createdAt int64, declarationID string) []byte {
	return []byte(fmt.Sprintf("%s%s:%020d:%s", prefixDeclaration, offerID, createdAt, declarationID))
}

// declarationPrefix returns the prefix covering every declaration of an offer.
// Format: "decl:{offerID}:"
func declarationPrefix(offerID string) []byte {
	return []byte(fmt.Sprintf("%s%s:", prefixDeclaration, offerID))
}

// keyUpperBound returns the exclusive upper bound for a prefix scan.
func keyUpperBound(prefix []byte) []byte {
	bound := make([]byte, len(prefix))
	copy(bound, prefix)
	bound[len(bound)-1]++
	return bound
}
