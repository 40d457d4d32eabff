package policy

import "github.com/google/uuid"

// Policy names a resource-level access rule layered on top of permission
// checks. Policies are interpreted against a resource snapshot; the engine
// holds no state and does no I/O.
type Policy string

const (
	OwnerOnly        Policy = "owner_only"
	NotPublished     Policy = "not_published"
	PublishedOnly    Policy = "published_only"
	PublishedOrOwner Policy = "published_or_owner"
)

// Resource is the capability set the engine is generic over. Concrete entity
// types stay out of this package.
type Resource interface {
	OwnerUserID() uuid.UUID
	Published() bool
}

// Evaluate returns whether userID may touch res under p. Unknown policies
// evaluate true: new policy names added by a newer writer must not lock out
// readers running older code, and the permission check has already run by the
// time any policy is evaluated.
func Evaluate(p Policy, userID uuid.UUID, res Resource) bool {
	switch p {
	case OwnerOnly:
		return res.OwnerUserID() == userID
	case NotPublished:
		return !res.Published()
	case PublishedOnly:
		return res.Published()
	case PublishedOrOwner:
		return res.Published() || res.OwnerUserID() == userID
	default:
		return true
	}
}

// EvaluateAll ANDs every policy in the set.
func EvaluateAll(policies []Policy, userID uuid.UUID, res Resource) bool {
	for _, p := range policies {
		if !Evaluate(p, userID, res) {
			return false
		}
	}
	return true
}

// FromStrings converts stored policy names (role.policies column) into
// typed policies. Unknown names pass through so Evaluate can apply its
// permissive default to them.
func FromStrings(names []string) []Policy {
	if len(names) == 0 {
		return nil
	}
	out := make([]Policy, 0, len(names))
	for _, n := range names {
		out = append(out, Policy(n))
	}
	return out
}
