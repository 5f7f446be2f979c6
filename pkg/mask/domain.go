package mask

import "strings"

// Domain is a detected business domain used to seed semantic naming.
type Domain string

// Known domain profiles.
const (
	DomainTelecom   Domain = "telecom"
	DomainFinance   Domain = "finance"
	DomainRetail    Domain = "retail"
	DomainHR        Domain = "hr"
	DomainLogistics Domain = "logistics"
	DomainBusiness  Domain = "business" // fallback when nothing matches
)

// domainVocab maps each domain to indicator terms matched against table and
// column names.
var domainVocab = map[Domain][]string{
	DomainTelecom:   {"network", "call", "mobile", "phone", "telecom", "carrier", "operator", "subscriber", "sim"},
	DomainFinance:   {"account", "payment", "transaction", "billing", "invoice", "price", "ledger", "balance"},
	DomainRetail:    {"product", "order", "customer", "sale", "inventory", "item", "basket", "sku"},
	DomainHR:        {"employee", "staff", "department", "payroll", "position", "salary", "hire"},
	DomainLogistics: {"shipment", "delivery", "warehouse", "tracking", "freight", "route"},
}

// DetectDomain runs a keyword-frequency heuristic over table and column
// names and returns the best-matching domain profile, or DomainBusiness
// when no vocabulary term appears.
func DetectDomain(set *EntitySet) Domain {
	scores := make(map[Domain]int)

	for _, e := range set.Entities() {
		if e.Role != RoleTable && e.Role != RoleColumn {
			continue
		}
		name := strings.ToLower(e.Key)
		for domain, terms := range domainVocab {
			for _, term := range terms {
				if strings.Contains(name, term) {
					scores[domain]++
				}
			}
		}
	}

	// fixed iteration order keeps ties deterministic
	best := DomainBusiness
	bestScore := 0
	for _, domain := range []Domain{DomainTelecom, DomainFinance, DomainRetail, DomainHR, DomainLogistics} {
		if scores[domain] > bestScore {
			best = domain
			bestScore = scores[domain]
		}
	}
	return best
}
