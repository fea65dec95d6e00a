package shop_test

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	shop "github.com/goliatone/go-shop"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/uptrace/bun"
)

// testConfig implements shop.Config
type testConfig struct {
	signingKey      string
	signingMethod   string
	contextKey      string
	tokenExpiration int
	verificationTTL time.Duration
	issuer          string
	audience        []string
	appHost         string
}

func newTestConfig() *testConfig {
	return &testConfig{
		signingKey:      "test-signing-key",
		signingMethod:   "HS256",
		contextKey:      "user",
		tokenExpiration: 1,
		verificationTTL: time.Hour,
		issuer:          "shop-test",
		appHost:         "http://localhost:8000",
	}
}

func (c *testConfig) GetSigningKey() string             { return c.signingKey }
func (c *testConfig) GetSigningMethod() string          { return c.signingMethod }
func (c *testConfig) GetContextKey() string             { return c.contextKey }
func (c *testConfig) GetTokenExpiration() int           { return c.tokenExpiration }
func (c *testConfig) GetVerificationTTL() time.Duration { return c.verificationTTL }
func (c *testConfig) GetTokenLookup() string            { return "header:Authorization" }
func (c *testConfig) GetAuthScheme() string             { return "Bearer" }
func (c *testConfig) GetIssuer() string                 { return c.issuer }
func (c *testConfig) GetAudience() []string             { return c.audience }
func (c *testConfig) GetAppHost() string                { return c.appHost }

// testIdentity implements shop.Identity
type testIdentity struct {
	id       string
	username string
	email    string
	role     string
}

func (t testIdentity) ID() string       { return t.id }
func (t testIdentity) Username() string { return t.username }
func (t testIdentity) Email() string    { return t.email }
func (t testIdentity) Role() string     { return t.role }

// MockUserTracker implements shop.UserTracker
type MockUserTracker struct {
	mock.Mock
}

func (m *MockUserTracker) GetByIdentifier(ctx context.Context, identifier string) (*shop.User, error) {
	args := m.Called(ctx, identifier)
	var user *shop.User
	if v := args.Get(0); v != nil {
		user = v.(*shop.User)
	}
	return user, args.Error(1)
}

func (m *MockUserTracker) TrackAttemptedLogin(ctx context.Context, user *shop.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserTracker) TrackSuccessfulLogin(ctx context.Context, user *shop.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

// MockUsers implements shop.Users
type MockUsers struct {
	mock.Mock
}

func (m *MockUsers) GetByIdentifier(ctx context.Context, identifier string) (*shop.User, error) {
	args := m.Called(ctx, identifier)
	var user *shop.User
	if v := args.Get(0); v != nil {
		user = v.(*shop.User)
	}
	return user, args.Error(1)
}

func (m *MockUsers) TrackAttemptedLogin(ctx context.Context, user *shop.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUsers) TrackAttemptedLoginTx(ctx context.Context, tx bun.IDB, user *shop.User) error {
	args := m.Called(ctx, tx, user)
	return args.Error(0)
}

func (m *MockUsers) TrackSuccessfulLogin(ctx context.Context, user *shop.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUsers) TrackSuccessfulLoginTx(ctx context.Context, tx bun.IDB, user *shop.User) error {
	args := m.Called(ctx, tx, user)
	return args.Error(0)
}

func (m *MockUsers) Register(ctx context.Context, user *shop.User) (*shop.User, error) {
	args := m.Called(ctx, user)
	var record *shop.User
	if v := args.Get(0); v != nil {
		record = v.(*shop.User)
	}
	return record, args.Error(1)
}

// RegisterTx echoes the input record when no return value is configured, so
// tests can observe what the handler built.
func (m *MockUsers) RegisterTx(ctx context.Context, tx bun.IDB, user *shop.User) (*shop.User, error) {
	args := m.Called(ctx, tx, user)
	record := user
	if v := args.Get(0); v != nil {
		record = v.(*shop.User)
	}
	return record, args.Error(1)
}

func (m *MockUsers) Create(ctx context.Context, record *shop.User, criteria ...repository.InsertCriteria) (*shop.User, error) {
	args := m.Called(ctx, record)
	var out *shop.User
	if v := args.Get(0); v != nil {
		out = v.(*shop.User)
	}
	return out, args.Error(1)
}

func (m *MockUsers) CreateTx(ctx context.Context, tx bun.IDB, record *shop.User, criteria ...repository.InsertCriteria) (*shop.User, error) {
	args := m.Called(ctx, tx, record)
	var out *shop.User
	if v := args.Get(0); v != nil {
		out = v.(*shop.User)
	}
	return out, args.Error(1)
}

func (m *MockUsers) MarkVerified(ctx context.Context, id uuid.UUID) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockUsers) MarkVerifiedTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (bool, error) {
	args := m.Called(ctx, tx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockUsers) SetProfileImage(ctx context.Context, id uuid.UUID, objectKey string) error {
	args := m.Called(ctx, id, objectKey)
	return args.Error(0)
}

// MockBusinesses implements shop.Businesses
type MockBusinesses struct {
	mock.Mock
}

func (m *MockBusinesses) GetByID(ctx context.Context, id string) (*shop.Business, error) {
	args := m.Called(ctx, id)
	var record *shop.Business
	if v := args.Get(0); v != nil {
		record = v.(*shop.Business)
	}
	return record, args.Error(1)
}

func (m *MockBusinesses) GetByOwner(ctx context.Context, ownerID uuid.UUID) (*shop.Business, error) {
	args := m.Called(ctx, ownerID)
	var record *shop.Business
	if v := args.Get(0); v != nil {
		record = v.(*shop.Business)
	}
	return record, args.Error(1)
}

func (m *MockBusinesses) List(ctx context.Context) ([]*shop.Business, error) {
	args := m.Called(ctx)
	var records []*shop.Business
	if v := args.Get(0); v != nil {
		records = v.([]*shop.Business)
	}
	return records, args.Error(1)
}

func (m *MockBusinesses) Create(ctx context.Context, record *shop.Business) (*shop.Business, error) {
	args := m.Called(ctx, record)
	var out *shop.Business
	if v := args.Get(0); v != nil {
		out = v.(*shop.Business)
	}
	return out, args.Error(1)
}

func (m *MockBusinesses) CreateTx(ctx context.Context, tx bun.IDB, record *shop.Business) (*shop.Business, error) {
	args := m.Called(ctx, tx, record)
	var out *shop.Business
	if v := args.Get(0); v != nil {
		out = v.(*shop.Business)
	}
	return out, args.Error(1)
}

func (m *MockBusinesses) Update(ctx context.Context, record *shop.Business) (*shop.Business, error) {
	args := m.Called(ctx, record)
	var out *shop.Business
	if v := args.Get(0); v != nil {
		out = v.(*shop.Business)
	}
	return out, args.Error(1)
}

// MockProducts implements shop.Products
type MockProducts struct {
	mock.Mock
}

func (m *MockProducts) GetWithOwner(ctx context.Context, id string) (*shop.Product, error) {
	args := m.Called(ctx, id)
	var record *shop.Product
	if v := args.Get(0); v != nil {
		record = v.(*shop.Product)
	}
	return record, args.Error(1)
}

func (m *MockProducts) List(ctx context.Context) ([]*shop.Product, error) {
	args := m.Called(ctx)
	var records []*shop.Product
	if v := args.Get(0); v != nil {
		records = v.([]*shop.Product)
	}
	return records, args.Error(1)
}

func (m *MockProducts) Create(ctx context.Context, record *shop.Product) (*shop.Product, error) {
	args := m.Called(ctx, record)
	var out *shop.Product
	if v := args.Get(0); v != nil {
		out = v.(*shop.Product)
	}
	return out, args.Error(1)
}

func (m *MockProducts) Update(ctx context.Context, record *shop.Product) (*shop.Product, error) {
	args := m.Called(ctx, record)
	var out *shop.Product
	if v := args.Get(0); v != nil {
		out = v.(*shop.Product)
	}
	return out, args.Error(1)
}

func (m *MockProducts) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockRepositoryManager implements shop.RepositoryManager. RunInTx executes
// the callback with a zero transaction so command handlers can be exercised
// without a database.
type MockRepositoryManager struct {
	mock.Mock
	users      *MockUsers
	businesses *MockBusinesses
	products   *MockProducts
}

func NewMockRepositoryManager() *MockRepositoryManager {
	return &MockRepositoryManager{
		users:      new(MockUsers),
		businesses: new(MockBusinesses),
		products:   new(MockProducts),
	}
}

func (m *MockRepositoryManager) Validate() error { return nil }

func (m *MockRepositoryManager) MustValidate() {}

func (m *MockRepositoryManager) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	return f(ctx, bun.Tx{})
}

func (m *MockRepositoryManager) Users() shop.Users { return m.users }

func (m *MockRepositoryManager) Businesses() shop.Businesses { return m.businesses }

func (m *MockRepositoryManager) Products() shop.Products { return m.products }

// MockMailer implements shop.Mailer
type MockMailer struct {
	mock.Mock
}

func (m *MockMailer) IsEnabled() bool {
	args := m.Called()
	return args.Bool(0)
}

func (m *MockMailer) SendTo(subject, body string, recipients []string) error {
	args := m.Called(subject, body, recipients)
	return args.Error(0)
}

// stubRenderer implements shop.TemplateRenderer without a view engine
type stubRenderer struct{}

func (stubRenderer) Render(out io.Writer, name string, binding any, layout ...string) error {
	_, err := fmt.Fprintf(out, "%s:%v", name, binding)
	return err
}
