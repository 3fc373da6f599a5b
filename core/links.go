package core

import (
	"net/url"
	"strings"
)

const (
	ClaimTypeSubject = "sub"
	ClaimTypeName    = "name"
	ClaimTypeRole    = "role"

	DefaultDiscoverySuffix = "/links"
)

type Operation string

const (
	OperationDiscovery Operation = "discovery"
	OperationCreate    Operation = "create"
	OperationList      Operation = "list"
	OperationRead      Operation = "read"
	OperationUpdate    Operation = "update"
	OperationDelete    Operation = "delete"
)

var linkCandidates = []Operation{
	OperationDiscovery,
	OperationCreate,
	OperationList,
	OperationRead,
	OperationUpdate,
	OperationDelete,
}

// IDQualified reports whether the operation targets a single resource.
func (o Operation) IDQualified() bool {
	switch o {
	case OperationRead, OperationUpdate, OperationDelete:
		return true
	default:
		return false
	}
}

// Claim is a typed statement about the caller. Matching is exact on both
// type and value.
type Claim struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

func RoleClaim(role string) Claim {
	return Claim{Type: ClaimTypeRole, Value: role}
}

func SubjectClaim(id string) Claim {
	return Claim{Type: ClaimTypeSubject, Value: id}
}

// ClaimSet is the set of claims carried by a caller.
type ClaimSet struct {
	ordered []Claim
	index   map[Claim]struct{}
}

func NewClaimSet(claims ...Claim) ClaimSet {
	set := ClaimSet{index: make(map[Claim]struct{}, len(claims))}
	for _, claim := range claims {
		if _, exists := set.index[claim]; exists {
			continue
		}
		set.index[claim] = struct{}{}
		set.ordered = append(set.ordered, claim)
	}
	return set
}

func (s ClaimSet) Has(claim Claim) bool {
	_, ok := s.index[claim]
	return ok
}

// Satisfies reports whether every required claim is present.
func (s ClaimSet) Satisfies(required []Claim) bool {
	for _, claim := range required {
		if !s.Has(claim) {
			return false
		}
	}
	return true
}

func (s ClaimSet) Claims() []Claim {
	return append([]Claim(nil), s.ordered...)
}

func (s ClaimSet) Len() int {
	return len(s.ordered)
}

// Value returns the first value carried for claimType.
func (s ClaimSet) Value(claimType string) (string, bool) {
	for _, claim := range s.ordered {
		if claim.Type == claimType {
			return claim.Value, true
		}
	}
	return "", false
}

func (s ClaimSet) Values(claimType string) []string {
	var values []string
	for _, claim := range s.ordered {
		if claim.Type == claimType {
			values = append(values, claim.Value)
		}
	}
	return values
}

type ClaimLink struct {
	URN            string  `json:"urn"`
	URL            string  `json:"url"`
	RequiredClaims []Claim `json:"required_claims,omitempty"`
}

// LinkPolicy describes the claims each operation on a resource family
// requires. Link discovery and request authorization share it.
type LinkPolicy struct {
	Namespace       string
	Requirements    map[Operation][]Claim
	DiscoverySuffix string
}

func NewLinkPolicy(namespace string, requirements map[Operation][]Claim) LinkPolicy {
	copied := make(map[Operation][]Claim, len(requirements))
	for op, claims := range requirements {
		copied[op] = append([]Claim(nil), claims...)
	}
	return LinkPolicy{
		Namespace:       strings.TrimSpace(namespace),
		Requirements:    copied,
		DiscoverySuffix: DefaultDiscoverySuffix,
	}
}

func (p LinkPolicy) URN(op Operation) string {
	return "urn:" + p.Namespace + ":" + string(op)
}

// Required returns the claims op needs. Discovery never needs any.
func (p LinkPolicy) Required(op Operation) []Claim {
	if op == OperationDiscovery {
		return nil
	}
	return append([]Claim(nil), p.Requirements[op]...)
}

func (p LinkPolicy) Allows(op Operation, claims ClaimSet) bool {
	return claims.Satisfies(p.Required(op))
}

// Authorize fails with a forbidden error when claims do not satisfy op.
func (p LinkPolicy) Authorize(op Operation, claims ClaimSet) error {
	if p.Allows(op, claims) {
		return nil
	}
	return ForbiddenError("missing claims for " + p.URN(op))
}

// Links lists the operations the caller may perform, in a fixed order:
// discovery, create, list, read, update, delete. Read, update and delete are
// only candidates when id is supplied.
func (p LinkPolicy) Links(base string, claims ClaimSet, id ...string) []ClaimLink {
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	resourceID := ""
	if len(id) > 0 {
		resourceID = strings.TrimSpace(id[0])
	}

	links := make([]ClaimLink, 0, len(linkCandidates))
	for _, op := range linkCandidates {
		if op.IDQualified() && resourceID == "" {
			continue
		}
		required := p.Required(op)
		if !claims.Satisfies(required) {
			continue
		}
		links = append(links, ClaimLink{
			URN:            p.URN(op),
			URL:            p.linkURL(base, op, resourceID),
			RequiredClaims: required,
		})
	}
	return links
}

func (p LinkPolicy) linkURL(base string, op Operation, id string) string {
	switch {
	case op == OperationDiscovery:
		return base + p.DiscoverySuffix
	case op.IDQualified():
		return base + "/" + url.PathEscape(id)
	default:
		return base
	}
}
