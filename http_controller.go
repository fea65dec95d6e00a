package shop

import (
	"errors"
	"fmt"
	"io"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/nyaruka/phonenumbers"

	"github.com/goliatone/go-shop/middleware/bearer"
	"github.com/goliatone/go-shop/storage"
)

// DefaultPhoneRegion is used to parse phone numbers submitted without a
// country prefix.
var DefaultPhoneRegion = "US"

type ShopControllerRoutes struct {
	Registration  string
	Token         string
	Verification  string
	Me            string
	Business      string
	Products      string
	UploadProfile string
	UploadProduct string
}

type ShopControllerViews struct {
	Verification string
}

// ShopController exposes the HTTP surface: account registration and login,
// email verification, storefront and catalog CRUD, and image uploads. Catalog
// reads are public; every mutation is gated on ownership of the resource.
type ShopController struct {
	Debug        bool
	Logger       Logger
	Repo         RepositoryManager
	Auther       Authenticator
	Verifier     *Verifier
	Images       storage.ImageStore
	ContextKey   string
	Routes       *ShopControllerRoutes
	Views        *ShopControllerViews
	ErrorHandler func(*fiber.Ctx, error) error
}

type ShopControllerOption func(*ShopController) *ShopController

func WithControllerLogger(logger Logger) ShopControllerOption {
	return func(c *ShopController) *ShopController {
		if logger != nil {
			c.Logger = logger
		}
		return c
	}
}

func WithControllerDebug(debug bool) ShopControllerOption {
	return func(c *ShopController) *ShopController {
		c.Debug = debug
		return c
	}
}

func WithControllerRepo(repo RepositoryManager) ShopControllerOption {
	return func(c *ShopController) *ShopController {
		c.Repo = repo
		return c
	}
}

func WithControllerAuther(auther Authenticator) ShopControllerOption {
	return func(c *ShopController) *ShopController {
		c.Auther = auther
		return c
	}
}

func WithControllerVerifier(verifier *Verifier) ShopControllerOption {
	return func(c *ShopController) *ShopController {
		c.Verifier = verifier
		return c
	}
}

func WithControllerImages(images storage.ImageStore) ShopControllerOption {
	return func(c *ShopController) *ShopController {
		c.Images = images
		return c
	}
}

func WithControllerContextKey(key string) ShopControllerOption {
	return func(c *ShopController) *ShopController {
		if key != "" {
			c.ContextKey = key
		}
		return c
	}
}

func NewShopController(opts ...ShopControllerOption) *ShopController {
	c := &ShopController{
		Logger:     defLogger{},
		ContextKey: "user",
		Routes: &ShopControllerRoutes{
			Registration:  "/registration",
			Token:         "/token",
			Verification:  "/verification",
			Me:            "/users/me",
			Business:      "/business",
			Products:      "/products",
			UploadProfile: "/upload/profile",
			UploadProduct: "/upload/product",
		},
		Views: &ShopControllerViews{
			Verification: "verification",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.ErrorHandler == nil {
		c.ErrorHandler = c.defaultErrHandler
	}

	if c.Repo == nil {
		panic("Missing RepositoryManager in shop controller...")
	}

	if c.Auther == nil {
		panic("Missing Authenticator in shop controller...")
	}

	return c
}

// RegisterRoutes wires the controller into the app. protected guards the
// routes that need an authenticated session.
func (s *ShopController) RegisterRoutes(app fiber.Router, protected fiber.Handler) {
	app.Post(s.Routes.Registration, s.RegistrationCreate)
	app.Post(s.Routes.Token, s.TokenCreate)
	app.Get(s.Routes.Verification, s.VerificationShow)

	app.Get(s.Routes.Me, protected, s.UserShow)

	app.Get(s.Routes.Business, s.BusinessList)
	app.Get(fmt.Sprintf("%s/:id", s.Routes.Business), s.BusinessShow)
	app.Put(fmt.Sprintf("%s/:id", s.Routes.Business), protected, s.BusinessUpdate)

	app.Get(s.Routes.Products, s.ProductList)
	app.Post(s.Routes.Products, protected, s.ProductCreate)
	app.Get(fmt.Sprintf("%s/:id", s.Routes.Products), s.ProductShow)
	app.Put(fmt.Sprintf("%s/:id", s.Routes.Products), protected, s.ProductUpdate)
	app.Delete(fmt.Sprintf("%s/:id", s.Routes.Products), protected, s.ProductDelete)

	app.Post(s.Routes.UploadProfile, protected, s.UploadProfileImage)
	app.Post(fmt.Sprintf("%s/:id", s.Routes.UploadProduct), protected, s.UploadProductImage)
}

// RegistrationCreatePayload is the registration request body
type RegistrationCreatePayload struct {
	Username string `form:"username" json:"username"`
	Email    string `form:"email" json:"email"`
	Phone    string `form:"phone_number" json:"phone_number"`
	Password string `form:"password" json:"password"`
}

// Validate will run validation rules
func (r RegistrationCreatePayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username, validation.Length(1, 200)),
		validation.Field(&r.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&r.Phone, validation.By(ValidatePhoneNumber)),
		validation.Field(&r.Password, validation.Required, validation.Length(6, 100)),
	)
}

// NormalizedPhone returns the phone number in E164 form, or the raw value
// when none was submitted.
func (r RegistrationCreatePayload) NormalizedPhone() string {
	if r.Phone == "" {
		return ""
	}

	num, err := phonenumbers.Parse(r.Phone, DefaultPhoneRegion)
	if err != nil {
		return r.Phone
	}

	return phonenumbers.Format(num, phonenumbers.E164)
}

func (s *ShopController) RegistrationCreate(c *fiber.Ctx) error {
	payload := new(RegistrationCreatePayload)

	if err := c.BodyParser(payload); err != nil {
		s.Logger.Error("registration parse payload", "error", err)
		return s.ErrorHandler(c, goerrors.Wrap(err, goerrors.CategoryBadInput, "could not parse request body"))
	}

	if err := payload.Validate(); err != nil {
		return s.renderValidationError(c, err)
	}

	if s.Debug {
		fmt.Println("======= REGISTRATION ======")
		fmt.Println(print.MaybePrettyJSON(payload))
		fmt.Println("===========================")
	}

	registerUser := NewRegisterUserHandler(s.Repo, s.Verifier)

	user, err := registerUser.Execute(c.UserContext(), RegisterUserMessage{
		Username: payload.Username,
		Email:    payload.Email,
		Phone:    payload.NormalizedPhone(),
		Password: payload.Password,
	})
	if err != nil {
		s.Logger.Error("registration execute", "error", err)
		return s.ErrorHandler(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"status": "ok",
		"data":   user,
	})
}

// TokenCreatePayload is the login request body
type TokenCreatePayload struct {
	Username string `form:"username" json:"username"`
	Password string `form:"password" json:"password"`
}

// Validate will run validation rules
func (r TokenCreatePayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username, validation.Required),
		validation.Field(&r.Password, validation.Required),
	)
}

func (s *ShopController) TokenCreate(c *fiber.Ctx) error {
	payload := new(TokenCreatePayload)

	if err := c.BodyParser(payload); err != nil {
		s.Logger.Error("token parse payload", "error", err)
		return s.ErrorHandler(c, goerrors.Wrap(err, goerrors.CategoryBadInput, "could not parse request body"))
	}

	if err := payload.Validate(); err != nil {
		return s.renderValidationError(c, err)
	}

	token, err := s.Auther.Login(c.UserContext(), payload.Username, payload.Password)
	if err != nil {
		return s.ErrorHandler(c, err)
	}

	return c.JSON(fiber.Map{
		"access_token": token,
		"token_type":   "bearer",
	})
}

func (s *ShopController) VerificationShow(c *fiber.Ctx) error {
	raw := c.Query("token")
	if raw == "" {
		return s.ErrorHandler(c, ErrTokenMalformed)
	}

	if s.Verifier == nil {
		return s.ErrorHandler(c, goerrors.New("verification is not configured", goerrors.CategoryInternal))
	}

	result, err := s.Verifier.Consume(c.UserContext(), raw)
	if err != nil {
		return s.ErrorHandler(c, err)
	}

	return c.Render(s.Views.Verification, fiber.Map{
		"username":         result.User.Username,
		"already_verified": result.AlreadyVerified,
	})
}

func (s *ShopController) UserShow(c *fiber.Ctx) error {
	user, err := s.currentUser(c)
	if err != nil {
		return s.ErrorHandler(c, err)
	}

	business, err := s.Repo.Businesses().GetByOwner(c.UserContext(), user.ID)
	if err != nil && !goerrors.IsNotFound(err) {
		return s.ErrorHandler(c, err)
	}

	return c.JSON(fiber.Map{
		"status": "ok",
		"data": fiber.Map{
			"user":     user,
			"business": business,
		},
	})
}

func (s *ShopController) BusinessList(c *fiber.Ctx) error {
	records, err := s.Repo.Businesses().List(c.UserContext())
	if err != nil {
		return s.ErrorHandler(c, err)
	}

	return c.JSON(fiber.Map{
		"status": "ok",
		"data":   records,
	})
}

func (s *ShopController) BusinessShow(c *fiber.Ctx) error {
	record, err := s.Repo.Businesses().GetByID(c.UserContext(), c.Params("id"))
	if err != nil {
		return s.ErrorHandler(c, err)
	}

	return c.JSON(fiber.Map{
		"status": "ok",
		"data":   record,
	})
}

// BusinessUpdatePayload is the storefront update body
type BusinessUpdatePayload struct {
	Name        string `form:"business_name" json:"business_name"`
	City        string `form:"city" json:"city"`
	Region      string `form:"region" json:"region"`
	Description string `form:"business_description" json:"business_description"`
}

// Validate will run validation rules
func (r BusinessUpdatePayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.City, validation.Length(0, 200)),
		validation.Field(&r.Region, validation.Length(0, 200)),
		validation.Field(&r.Description, validation.Length(0, 2000)),
	)
}

func (s *ShopController) BusinessUpdate(c *fiber.Ctx) error {
	user, err := s.currentUser(c)
	if err != nil {
		return s.ErrorHandler(c, err)
	}

	payload := new(BusinessUpdatePayload)
	if err := c.BodyParser(payload); err != nil {
		return s.ErrorHandler(c, goerrors.Wrap(err, goerrors.CategoryBadInput, "could not parse request body"))
	}

	if err := payload.Validate(); err != nil {
		return s.renderValidationError(c, err)
	}

	record, err := s.Repo.Businesses().GetByID(c.UserContext(), c.Params("id"))
	if err != nil {
		// Missing and not-yours answer identically so existence never
		// leaks to non-owners.
		if goerrors.IsNotFound(err) {
			return s.ErrorHandler(c, ErrNotResourceOwner)
		}
		return s.ErrorHandler(c, err)
	}

	if err := AuthorizeOwner(identityFromUser(user), record); err != nil {
		return s.ErrorHandler(c, err)
	}

	record.Name = payload.Name
	record.City = payload.City
	record.Region = payload.Region
	record.Description = payload.Description

	updated, err := s.Repo.Businesses().Update(c.UserContext(), record)
	if err != nil {
		return s.ErrorHandler(c, err)
	}

	return c.JSON(fiber.Map{
		"status": "ok",
		"data":   updated,
	})
}

// ProductPayload is the catalog create/update body
type ProductPayload struct {
	Name           string     `form:"name" json:"name"`
	Category       string     `form:"category" json:"category"`
	OriginalPrice  float64    `form:"original_price" json:"original_price"`
	NewPrice       float64    `form:"new_price" json:"new_price"`
	OfferExpiresAt *time.Time `form:"offer_expires_at" json:"offer_expires_at"`
}

// Validate will run validation rules
func (r ProductPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Category, validation.Length(0, 200)),
		validation.Field(&r.OriginalPrice, validation.Required, validation.Min(0.01)),
		validation.Field(&r.NewPrice, validation.Required, validation.Min(0.01)),
	)
}

func (s *ShopController) ProductList(c *fiber.Ctx) error {
	records, err := s.Repo.Products().List(c.UserContext())
	if err != nil {
		return s.ErrorHandler(c, err)
	}

	return c.JSON(fiber.Map{
		"status": "ok",
		"data":   records,
	})
}

func (s *ShopController) ProductShow(c *fiber.Ctx) error {
	record, err := s.Repo.Products().GetWithOwner(c.UserContext(), c.Params("id"))
	if err != nil {
		return s.ErrorHandler(c, err)
	}

	return c.JSON(fiber.Map{
		"status": "ok",
		"data":   record,
	})
}

func (s *ShopController) ProductCreate(c *fiber.Ctx) error {
	user, err := s.currentUser(c)
	if err != nil {
		return s.ErrorHandler(c, err)
	}

	payload := new(ProductPayload)
	if err := c.BodyParser(payload); err != nil {
		return s.ErrorHandler(c, goerrors.Wrap(err, goerrors.CategoryBadInput, "could not parse request body"))
	}

	if err := payload.Validate(); err != nil {
		return s.renderValidationError(c, err)
	}

	business, err := s.Repo.Businesses().GetByOwner(c.UserContext(), user.ID)
	if err != nil {
		return s.ErrorHandler(c, goerrors.Wrap(err, goerrors.CategoryNotFound, "no storefront for this account"))
	}

	record := &Product{
		Name:           payload.Name,
		Category:       payload.Category,
		OriginalPrice:  payload.OriginalPrice,
		NewPrice:       payload.NewPrice,
		OfferExpiresAt: payload.OfferExpiresAt,
		BusinessID:     business.ID,
	}

	created, err := s.Repo.Products().Create(c.UserContext(), record)
	if err != nil {
		return s.ErrorHandler(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"status": "ok",
		"data":   created,
	})
}

func (s *ShopController) ProductUpdate(c *fiber.Ctx) error {
	user, err := s.currentUser(c)
	if err != nil {
		return s.ErrorHandler(c, err)
	}

	payload := new(ProductPayload)
	if err := c.BodyParser(payload); err != nil {
		return s.ErrorHandler(c, goerrors.Wrap(err, goerrors.CategoryBadInput, "could not parse request body"))
	}

	if err := payload.Validate(); err != nil {
		return s.renderValidationError(c, err)
	}

	record, err := s.loadOwnedProduct(c, user)
	if err != nil {
		return s.ErrorHandler(c, err)
	}

	record.Name = payload.Name
	record.Category = payload.Category
	record.OriginalPrice = payload.OriginalPrice
	record.NewPrice = payload.NewPrice
	record.OfferExpiresAt = payload.OfferExpiresAt

	updated, err := s.Repo.Products().Update(c.UserContext(), record)
	if err != nil {
		return s.ErrorHandler(c, err)
	}

	return c.JSON(fiber.Map{
		"status": "ok",
		"data":   updated,
	})
}

func (s *ShopController) ProductDelete(c *fiber.Ctx) error {
	user, err := s.currentUser(c)
	if err != nil {
		return s.ErrorHandler(c, err)
	}

	record, err := s.loadOwnedProduct(c, user)
	if err != nil {
		return s.ErrorHandler(c, err)
	}

	if err := s.Repo.Products().Delete(c.UserContext(), record.ID); err != nil {
		return s.ErrorHandler(c, err)
	}

	return c.JSON(fiber.Map{
		"status": "ok",
	})
}

func (s *ShopController) UploadProfileImage(c *fiber.Ctx) error {
	user, err := s.currentUser(c)
	if err != nil {
		return s.ErrorHandler(c, err)
	}

	key, err := s.storeUpload(c, func(c *fiber.Ctx, file *uploadedFile) (string, error) {
		return s.Images.UploadProfileImage(c.UserContext(), user.ID, file.reader, file.size, file.contentType)
	})
	if err != nil {
		return s.ErrorHandler(c, err)
	}

	if err := s.Repo.Users().SetProfileImage(c.UserContext(), user.ID, key); err != nil {
		return s.ErrorHandler(c, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to store profile image reference"))
	}

	return c.JSON(fiber.Map{
		"status": "ok",
		"data": fiber.Map{
			"profile_image": key,
			"url":           s.Images.URL(key),
		},
	})
}

func (s *ShopController) UploadProductImage(c *fiber.Ctx) error {
	user, err := s.currentUser(c)
	if err != nil {
		return s.ErrorHandler(c, err)
	}

	record, err := s.loadOwnedProduct(c, user)
	if err != nil {
		return s.ErrorHandler(c, err)
	}

	key, err := s.storeUpload(c, func(c *fiber.Ctx, file *uploadedFile) (string, error) {
		return s.Images.UploadProductImage(c.UserContext(), record.ID, file.reader, file.size, file.contentType)
	})
	if err != nil {
		return s.ErrorHandler(c, err)
	}

	record.Image = key

	updated, err := s.Repo.Products().Update(c.UserContext(), record)
	if err != nil {
		return s.ErrorHandler(c, err)
	}

	return c.JSON(fiber.Map{
		"status": "ok",
		"data":   updated,
	})
}

// currentUser resolves the validated claims the auth middleware stored into
// the full user record.
func (s *ShopController) currentUser(c *fiber.Ctx) (*User, error) {
	claims, err := bearer.ClaimsFromContext(c, s.ContextKey)
	if err != nil {
		return nil, ErrTokenMalformed
	}

	user, err := s.Repo.Users().GetByIdentifier(c.UserContext(), claims.UserID())
	if err != nil {
		if goerrors.IsNotFound(err) {
			return nil, ErrTokenMalformed
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load user for session")
	}

	return user, nil
}

// loadOwnedProduct loads the product with its owning business and enforces
// ownership. Missing and not-yours collapse into the same denial.
func (s *ShopController) loadOwnedProduct(c *fiber.Ctx, user *User) (*Product, error) {
	record, err := s.Repo.Products().GetWithOwner(c.UserContext(), c.Params("id"))
	if err != nil {
		if goerrors.IsNotFound(err) {
			return nil, ErrNotResourceOwner
		}
		return nil, err
	}

	if err := AuthorizeOwner(identityFromUser(user), record); err != nil {
		return nil, err
	}

	return record, nil
}

type uploadedFile struct {
	reader      io.Reader
	size        int64
	contentType string
}

func (s *ShopController) storeUpload(c *fiber.Ctx, store func(*fiber.Ctx, *uploadedFile) (string, error)) (string, error) {
	if s.Images == nil {
		return "", goerrors.New("image storage is not configured", goerrors.CategoryInternal)
	}

	header, err := c.FormFile("file")
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryBadInput, "missing file upload").
			WithCode(fiber.StatusBadRequest)
	}

	file, err := header.Open()
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryBadInput, "could not read file upload").
			WithCode(fiber.StatusBadRequest)
	}
	defer file.Close()

	key, err := store(c, &uploadedFile{
		reader:      file,
		size:        header.Size,
		contentType: header.Header.Get(fiber.HeaderContentType),
	})
	if err != nil {
		if errors.Is(err, storage.ErrFileTooBig) || errors.Is(err, storage.ErrInvalidFileType) {
			return "", goerrors.Wrap(err, goerrors.CategoryBadInput, err.Error()).
				WithCode(fiber.StatusBadRequest)
		}
		return "", goerrors.Wrap(err, goerrors.CategoryOperation, "failed to store uploaded file")
	}

	return key, nil
}

func (s *ShopController) renderValidationError(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
		"error": fiber.Map{
			"message": "validation failed",
			"fields":  FormatValidationErrorToMap(err),
		},
	})
}

func (s *ShopController) defaultErrHandler(c *fiber.Ctx, err error) error {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		richErr = goerrors.Wrap(err, goerrors.CategoryInternal, "An unexpected server error occurred").
			WithCode(goerrors.CodeInternal)
	}

	status := statusForError(richErr)

	if status == fiber.StatusUnauthorized {
		c.Set(fiber.HeaderWWWAuthenticate, "Bearer")
	}

	if s.Debug {
		s.Logger.Debug(
			"request error",
			"error", richErr.Message,
			"category", richErr.Category,
			"details", print.MaybePrettyJSON(richErr.Metadata),
		)
	}

	body := fiber.Map{
		"message": richErr.Message,
	}
	if richErr.TextCode != "" {
		body["text_code"] = richErr.TextCode
	}

	return c.Status(status).JSON(fiber.Map{
		"error": body,
	})
}

func statusForError(richErr *goerrors.Error) int {
	if richErr.Code > 0 {
		return richErr.Code
	}

	switch richErr.Category {
	case goerrors.CategoryAuth:
		return fiber.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return fiber.StatusForbidden
	case goerrors.CategoryNotFound:
		return fiber.StatusNotFound
	case goerrors.CategoryValidation, goerrors.CategoryBadInput:
		return fiber.StatusBadRequest
	case goerrors.CategoryConflict:
		return fiber.StatusConflict
	case goerrors.CategoryRateLimit:
		return fiber.StatusTooManyRequests
	default:
		return fiber.StatusInternalServerError
	}
}

// FormatValidationErrorToMap flattens ozzo validation errors into a
// field-to-message map.
func FormatValidationErrorToMap(err error) map[string]string {
	out := map[string]string{}

	var verrs validation.Errors
	if errors.As(err, &verrs) {
		for field, ferr := range verrs {
			out[field] = ferr.Error()
		}
		return out
	}

	out["error"] = err.Error()
	return out
}

// ValidatePhoneNumber is an ozzo rule accepting parseable, valid phone
// numbers. Empty values pass; Required handles presence.
func ValidatePhoneNumber(value any) error {
	raw, _ := value.(string)
	if raw == "" {
		return nil
	}

	num, err := phonenumbers.Parse(raw, DefaultPhoneRegion)
	if err != nil {
		return errors.New("must be a valid phone number")
	}

	if !phonenumbers.IsValidNumber(num) {
		return errors.New("must be a valid phone number")
	}

	return nil
}
