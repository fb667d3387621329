package koragraph

import (
	"fmt"
	"strings"

	"github.com/a-peyrard/koragraph/typesys"
)

type (
	// ClaimKind tells how the resolved value must be handed to the requester.
	ClaimKind int

	// Claim is a request for a dependency of a given type and tag set.
	Claim struct {
		Type typesys.Type
		Tags Tags
		Kind ClaimKind
	}
)

const (
	OneRequired ClaimKind = iota
	OneNullable
	PromiseOf
	NullablePromiseOf
	ValueOf
	NullableValueOf
	AllOfOne
	AllOfPromise
	AllOfValue
	TypeRef
)

var claimKindNames = [...]string{
	OneRequired:       "ONE_REQUIRED",
	OneNullable:       "ONE_NULLABLE",
	PromiseOf:         "PROMISE_OF",
	NullablePromiseOf: "NULLABLE_PROMISE_OF",
	ValueOf:           "VALUE_OF",
	NullableValueOf:   "NULLABLE_VALUE_OF",
	AllOfOne:          "ALL_OF_ONE",
	AllOfPromise:      "ALL_OF_PROMISE",
	AllOfValue:        "ALL_OF_VALUE",
	TypeRef:           "TYPE_REF",
}

// NewClaim creates a claim for the given type, the tags are normalized.
func NewClaim(t typesys.Type, kind ClaimKind, tags ...string) Claim {
	return Claim{Type: t, Tags: NewTags(tags...), Kind: kind}
}

// ParseClaimKind parses the textual form of a claim kind, case and separators are ignored, so
// "ONE_REQUIRED", "one_required" and "one-required" are equivalent.
func ParseClaimKind(s string) (ClaimKind, error) {
	normalized := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), "-", "_"))
	for kind, name := range claimKindNames {
		if name == normalized {
			return ClaimKind(kind), nil
		}
	}
	return 0, fmt.Errorf("unknown claim kind %q", s)
}

func (k ClaimKind) String() string {
	if k < 0 || int(k) >= len(claimKindNames) {
		return fmt.Sprintf("ClaimKind(%d)", int(k))
	}
	return claimKindNames[k]
}

// IsNullable returns true if an unmatched claim resolves to an absent value instead of failing.
func (k ClaimKind) IsNullable() bool {
	return k == OneNullable || k == NullablePromiseOf || k == NullableValueOf
}

// IsAllOf returns true if the claim gathers every matching component.
func (k ClaimKind) IsAllOf() bool {
	return k == AllOfOne || k == AllOfPromise || k == AllOfValue
}

// TagsMatch returns true if the candidate tags are exactly the tags of the claim.
func (c Claim) TagsMatch(candidate Tags) bool {
	return c.Tags.Matches(candidate)
}

func (c Claim) String() string {
	if c.Tags.IsEmpty() {
		return fmt.Sprintf("%s %s", c.Kind, c.Type)
	}
	return fmt.Sprintf("%s %s %s", c.Kind, c.Type, c.Tags)
}

func (c Claim) specialize(subst typesys.Substitution) Claim {
	return Claim{Type: typesys.Replace(c.Type, subst), Tags: c.Tags, Kind: c.Kind}
}
