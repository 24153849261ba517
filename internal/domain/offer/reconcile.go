package offer

// NewOnly returns the offers whose ID is absent from existing, in input order. Repeated IDs within
// incoming keep their first occurrence.
func NewOnly(existing map[string]struct{}, incoming []*Offer) []*Offer {
	seen := make(map[string]struct{}, len(incoming))
	out := make([]*Offer, 0, len(incoming))
	for _, o := range incoming {
		if o == nil {
			continue
		}
		id := o.OfferID()
		if _, ok := existing[id]; ok {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, o)
	}
	return out
}

// IDs collects the offer IDs of offers, skipping repeats.
func IDs(offers []*Offer) []string {
	seen := make(map[string]struct{}, len(offers))
	ids := make([]string, 0, len(offers))
	for _, o := range offers {
		if _, ok := seen[o.OfferID()]; ok {
			continue
		}
		seen[o.OfferID()] = struct{}{}
		ids = append(ids, o.OfferID())
	}
	return ids
}
