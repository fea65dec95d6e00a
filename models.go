package shop

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// UserRole is the user's role
type UserRole = string

const (
	// RoleMember is a regular storefront account
	RoleMember UserRole = "member"
	// RoleAdmin can manage any resource
	RoleAdmin UserRole = "admin"
)

// User is the user model
type User struct {
	bun.BaseModel  `bun:"table:users,alias:usr"`
	ID             uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Role           UserRole   `bun:"user_role,notnull" json:"user_role,omitempty"`
	Username       string     `bun:"username,notnull,unique" json:"username,omitempty"`
	Email          string     `bun:"email,notnull,unique" json:"email,omitempty"`
	Phone          string     `bun:"phone_number" json:"phone_number,omitempty"`
	PasswordHash   string     `bun:"password_hash" json:"-"`
	ProfileImage   string     `bun:"profile_image" json:"profile_image,omitempty"`
	EmailVerified  bool       `bun:"is_verified" json:"is_verified"`
	LoginAttempts  int        `bun:"login_attempts" json:"-"`
	LoginAttemptAt *time.Time `bun:"login_attempt_at" json:"-"`
	LoggedInAt     *time.Time `bun:"loggedin_at" json:"loggedin_at,omitempty"`
	CreatedAt      *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt      *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt      *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// OwnerIdentity lets a user stand in as an owned resource (profile mutations)
func (u *User) OwnerIdentity() uuid.UUID {
	if u == nil {
		return uuid.Nil
	}
	return u.ID
}

// Business is the storefront model. One is created for every user at
// registration, named after the username.
type Business struct {
	bun.BaseModel `bun:"table:businesses,alias:biz"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Name          string     `bun:"business_name,notnull" json:"business_name,omitempty"`
	City          string     `bun:"city" json:"city,omitempty"`
	Region        string     `bun:"region" json:"region,omitempty"`
	Description   string     `bun:"business_description" json:"business_description,omitempty"`
	Logo          string     `bun:"logo" json:"logo,omitempty"`
	OwnerID       uuid.UUID  `bun:"owner_id,notnull,type:uuid" json:"owner_id,omitempty"`
	Owner         *User      `bun:"rel:belongs-to,join:owner_id=id" json:"owner,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt     *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// OwnerIdentity resolves the owning user
func (b *Business) OwnerIdentity() uuid.UUID {
	if b == nil {
		return uuid.Nil
	}
	return b.OwnerID
}

// Product is the catalog model
type Product struct {
	bun.BaseModel      `bun:"table:products,alias:prd"`
	ID                 uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Name               string     `bun:"name,notnull" json:"name,omitempty"`
	Category           string     `bun:"category" json:"category,omitempty"`
	OriginalPrice      float64    `bun:"original_price" json:"original_price,omitempty"`
	NewPrice           float64    `bun:"new_price" json:"new_price,omitempty"`
	PercentageDiscount float64    `bun:"percentage_discount" json:"percentage_discount,omitempty"`
	OfferExpiresAt     *time.Time `bun:"offer_expires_at,nullzero" json:"offer_expires_at,omitempty"`
	Image              string     `bun:"product_image" json:"product_image,omitempty"`
	BusinessID         uuid.UUID  `bun:"business_id,notnull,type:uuid" json:"business_id,omitempty"`
	Business           *Business  `bun:"rel:belongs-to,join:business_id=id" json:"business,omitempty"`
	CreatedAt          *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt          *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt          *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// OwnerIdentity resolves the owning user through the business relation. The
// relation must be loaded; an unloaded business resolves to uuid.Nil, which
// never matches a real identity.
func (p *Product) OwnerIdentity() uuid.UUID {
	if p == nil || p.Business == nil {
		return uuid.Nil
	}
	return p.Business.OwnerID
}

// RefreshDiscount recomputes the discount from the two prices so the stored
// percentage never drifts from them.
func (p *Product) RefreshDiscount() {
	if p.OriginalPrice <= 0 || p.NewPrice <= 0 || p.NewPrice >= p.OriginalPrice {
		p.PercentageDiscount = 0
		return
	}
	p.PercentageDiscount = ((p.OriginalPrice - p.NewPrice) / p.OriginalPrice) * 100
}
