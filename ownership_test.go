package shop_test

import (
	"testing"

	shop "github.com/goliatone/go-shop"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestAuthorizeOwner(t *testing.T) {
	ownerID := uuid.New()
	strangerID := uuid.New()

	owner := testIdentity{id: ownerID.String(), username: "owner"}
	stranger := testIdentity{id: strangerID.String(), username: "stranger"}

	business := &shop.Business{
		ID:      uuid.New(),
		Name:    "owner",
		OwnerID: ownerID,
	}

	tests := []struct {
		name     string
		identity shop.Identity
		resource shop.Owned
		wantErr  bool
	}{
		{
			name:     "Owner allowed",
			identity: owner,
			resource: business,
			wantErr:  false,
		},
		{
			name:     "Stranger denied",
			identity: stranger,
			resource: business,
			wantErr:  true,
		},
		{
			name:     "Nil identity denied",
			identity: nil,
			resource: business,
			wantErr:  true,
		},
		{
			name:     "Nil resource denied",
			identity: owner,
			resource: nil,
			wantErr:  true,
		},
		{
			name:     "Malformed identity id denied",
			identity: testIdentity{id: "not-a-uuid"},
			resource: business,
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := shop.AuthorizeOwner(tt.identity, tt.resource)

			if tt.wantErr {
				assert.ErrorIs(t, err, shop.ErrNotResourceOwner)
				return
			}

			assert.NoError(t, err)
		})
	}
}

func TestAuthorizeOwnerTransitive(t *testing.T) {
	ownerID := uuid.New()
	owner := testIdentity{id: ownerID.String()}
	stranger := testIdentity{id: uuid.NewString()}

	t.Run("Product resolves through its business", func(t *testing.T) {
		product := &shop.Product{
			ID: uuid.New(),
			Business: &shop.Business{
				ID:      uuid.New(),
				OwnerID: ownerID,
			},
		}

		assert.NoError(t, shop.AuthorizeOwner(owner, product))
		assert.ErrorIs(t, shop.AuthorizeOwner(stranger, product), shop.ErrNotResourceOwner)
	})

	t.Run("Unloaded business relation denies everyone", func(t *testing.T) {
		product := &shop.Product{ID: uuid.New()}

		assert.ErrorIs(t, shop.AuthorizeOwner(owner, product), shop.ErrNotResourceOwner)
	})
}
