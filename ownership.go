package shop

import (
	"github.com/google/uuid"
)

// AuthorizeOwner is the decision rule gating every mutating resource
// operation: a pure equality check between the authenticated identity and the
// resource's resolved owner. Reads never pass through here; catalog browsing
// is public.
func AuthorizeOwner(identity Identity, resource Owned) error {
	if identity == nil || resource == nil {
		return ErrNotResourceOwner
	}

	owner := resource.OwnerIdentity()
	if owner == uuid.Nil {
		return ErrNotResourceOwner
	}

	uid, err := uuid.Parse(identity.ID())
	if err != nil {
		return ErrNotResourceOwner
	}

	if uid != owner {
		return ErrNotResourceOwner
	}

	return nil
}
