package identity

import (
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
)

// IdentityControllerRoutes holds the route paths for the JSON API.
type IdentityControllerRoutes struct {
	Register       string
	Activate       string
	Login          string
	ValidateToken  string
	RegenerateOtp  string
	ForgetPassword string
	ChangePassword string
	Profile        string
	Update         string
	Delete         string
}

type IdentityController struct {
	Debug          bool
	Logger         Logger
	Repo           RepositoryManager
	Auther         Authenticator
	Config         Config
	TokenService   TokenService
	Routes         *IdentityControllerRoutes
	Register       *RegisterUserHandler
	Activate       *ActivateAccountHandler
	Regenerate     *RegeneratePasscodeHandler
	ChangePassword *ChangePasswordHandler
	UpdateProfile  *UpdateProfileHandler
	DeleteAccount  *DeleteAccountHandler

	mailer   PasscodeMailer
	activity ActivitySink
}

type IdentityControllerOption func(*IdentityController) *IdentityController

func WithControllerLogger(logger Logger) IdentityControllerOption {
	return func(c *IdentityController) *IdentityController {
		if logger != nil {
			c.Logger = logger
		}
		return c
	}
}

func WithControllerRepo(repo RepositoryManager) IdentityControllerOption {
	return func(c *IdentityController) *IdentityController {
		c.Repo = repo
		return c
	}
}

func WithControllerAuthenticator(auther Authenticator) IdentityControllerOption {
	return func(c *IdentityController) *IdentityController {
		c.Auther = auther
		return c
	}
}

func WithControllerConfig(cfg Config) IdentityControllerOption {
	return func(c *IdentityController) *IdentityController {
		c.Config = cfg
		return c
	}
}

func WithControllerTokenService(ts TokenService) IdentityControllerOption {
	return func(c *IdentityController) *IdentityController {
		c.TokenService = ts
		return c
	}
}

func WithControllerMailer(mailer PasscodeMailer) IdentityControllerOption {
	return func(c *IdentityController) *IdentityController {
		c.mailer = mailer
		return c
	}
}

func WithControllerActivitySink(sink ActivitySink) IdentityControllerOption {
	return func(c *IdentityController) *IdentityController {
		c.activity = sink
		return c
	}
}

func WithControllerDebug(debug bool) IdentityControllerOption {
	return func(c *IdentityController) *IdentityController {
		c.Debug = debug
		return c
	}
}

func NewIdentityController(opts ...IdentityControllerOption) *IdentityController {
	c := &IdentityController{
		Logger: defLogger{},
		Routes: &IdentityControllerRoutes{
			Register:       "/register",
			Activate:       "/activate",
			Login:          "/login",
			ValidateToken:  "/validateToken",
			RegenerateOtp:  "/regenerateOtp",
			ForgetPassword: "/forgetPassword",
			ChangePassword: "/changePassword",
			Profile:        "/profile",
			Update:         "/update",
			Delete:         "/delete",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Repo == nil {
		panic("Missing RepositoryManager in identity controller...")
	}

	if c.Config == nil {
		panic("Missing Config in identity controller...")
	}

	if c.Auther == nil {
		provider := NewUserProvider(c.Repo.Users()).WithLogger(c.Logger)
		auther := NewAuthenticator(provider, c.Repo, c.Config).WithLogger(c.Logger)
		if c.activity != nil {
			auther.WithActivitySink(c.activity)
		}
		if c.TokenService != nil {
			auther.WithTokenService(c.TokenService)
		}
		c.Auther = auther
		if c.TokenService == nil {
			c.TokenService = auther.TokenService()
		}
	}

	mailer := normalizeMailer(c.mailer)
	sink := normalizeActivitySink(c.activity)

	if c.Register == nil {
		c.Register = NewRegisterUserHandler(c.Repo).
			WithMailer(mailer).
			WithActivitySink(sink).
			WithLogger(c.Logger)
	}
	if c.Activate == nil {
		c.Activate = NewActivateAccountHandler(c.Repo).
			WithActivitySink(sink).
			WithLogger(c.Logger)
	}
	if c.Regenerate == nil {
		c.Regenerate = NewRegeneratePasscodeHandler(c.Repo).
			WithMailer(mailer).
			WithActivitySink(sink).
			WithLogger(c.Logger)
	}
	if c.ChangePassword == nil {
		c.ChangePassword = NewChangePasswordHandler(c.Repo).
			WithActivitySink(sink).
			WithLogger(c.Logger)
	}
	if c.UpdateProfile == nil {
		c.UpdateProfile = NewUpdateProfileHandler(c.Repo).
			WithMailer(mailer).
			WithActivitySink(sink).
			WithLogger(c.Logger)
	}
	if c.DeleteAccount == nil {
		c.DeleteAccount = NewDeleteAccountHandler(c.Repo).
			WithActivitySink(sink).
			WithLogger(c.Logger)
	}

	return c
}

// RegisterIdentityRoutes mounts the identity JSON API on the given router.
func RegisterIdentityRoutes[T any](app router.Router[T], opts ...IdentityControllerOption) {
	controller := NewIdentityController(opts...)

	guard := ProtectedRoute(controller.Config, controller.TokenService, controller.UnauthorizedHandler)

	app.Post(controller.Routes.Register, controller.RegisterPost).
		SetName("identity.register")
	app.Post(controller.Routes.Activate, controller.ActivatePost).
		SetName("identity.activate")
	app.Post(controller.Routes.Login, controller.LoginPost).
		SetName("identity.login")
	app.Post(controller.Routes.ValidateToken, controller.ValidateTokenPost).
		SetName("identity.validate-token")
	app.Post(controller.Routes.RegenerateOtp, controller.RegenerateOtpPost).
		SetName("identity.regenerate-otp")
	app.Post(controller.Routes.ForgetPassword, controller.ForgetPasswordPost).
		SetName("identity.forget-password")
	app.Post(controller.Routes.ChangePassword, controller.ChangePasswordPost).
		SetName("identity.change-password")

	app.Get(controller.Routes.Profile, controller.ProfileGet, guard).
		SetName("identity.profile")
	app.Put(controller.Routes.Update, controller.UpdatePut, guard).
		SetName("identity.update")
	app.Delete(controller.Routes.Delete, controller.DeleteAccountHandler, guard).
		SetName("identity.delete")
}

// UserResponse is the public shape of a user record.
type UserResponse struct {
	ID      int64  `json:"id"`
	Email   string `json:"email"`
	Enabled bool   `json:"enabled"`
	Phone   string `json:"phone_number,omitempty"`
}

func userResponse(user *User) UserResponse {
	return UserResponse{
		ID:      user.ID,
		Email:   user.Email,
		Enabled: user.Enabled,
		Phone:   user.Phone,
	}
}

// LoginResponse carries the minted bearer token.
type LoginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// RegistrationPayload is the register request body
type RegistrationPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone_number,omitempty"`
}

// Validate will run validation rules
func (r RegistrationPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(6, 100)),
	)
}

func (a *IdentityController) RegisterPost(ctx router.Context) error {
	payload := new(RegistrationPayload)

	if err := ctx.Bind(payload); err != nil {
		return a.badRequest(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return a.badRequest(ctx, err)
	}

	if a.Debug {
		a.Logger.Debug("register payload: %s", print.MaybePrettyJSON(payload))
	}

	user, err := a.Register.Execute(ctx.Context(), RegisterUserMessage{
		Email:    payload.Email,
		Password: payload.Password,
		Phone:    payload.Phone,
	})
	if err != nil {
		return RespondError(ctx, err)
	}

	return ctx.JSON(http.StatusCreated, userResponse(user))
}

// ActivationPayload is the activate request body
type ActivationPayload struct {
	Email string `json:"email"`
	Code  string `json:"otp"`
}

// Validate will run validation rules
func (r ActivationPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Code, validation.Required, validation.Length(PasscodeLength, PasscodeLength)),
	)
}

func (a *IdentityController) ActivatePost(ctx router.Context) error {
	payload := new(ActivationPayload)

	if err := ctx.Bind(payload); err != nil {
		return a.badRequest(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return a.badRequest(ctx, err)
	}

	err := a.Activate.Execute(ctx.Context(), ActivateAccountMessage{
		Email: payload.Email,
		Code:  payload.Code,
	})
	if err != nil {
		return a.respondPasscodeError(ctx, err)
	}

	return ctx.JSON(http.StatusOK, map[string]any{
		"message": "Account activated",
	})
}

// LoginPayload is the login request body
type LoginPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate will run validation rules
func (r LoginPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required),
	)
}

func (a *IdentityController) LoginPost(ctx router.Context) error {
	payload := new(LoginPayload)

	if err := ctx.Bind(payload); err != nil {
		return a.badRequest(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return a.badRequest(ctx, err)
	}

	token, err := a.Auther.Login(ctx.Context(), payload.Email, payload.Password)
	if err != nil {
		return RespondError(ctx, err)
	}

	return ctx.JSON(http.StatusOK, LoginResponse{
		AccessToken: token,
		TokenType:   TokenTypeBearer,
	})
}

// ValidateTokenPost verifies the bearer token in the Authorization header
// and returns the account it belongs to. Downstream services call this
// endpoint through middleware/delegated.
func (a *IdentityController) ValidateTokenPost(ctx router.Context) error {
	header := ctx.Header(router.HeaderAuthorization)
	if header == "" {
		return RespondError(ctx, ErrTokenMalformed.WithCode(goerrors.CodeBadRequest))
	}

	user, err := a.Auther.ValidateToken(ctx.Context(), header)
	if err != nil {
		return RespondError(ctx, err)
	}

	return ctx.JSON(http.StatusOK, userResponse(user))
}

func (a *IdentityController) RegenerateOtpPost(ctx router.Context) error {
	email := ctx.Query("email", "")
	if email == "" {
		return a.badRequest(ctx, goerrors.New("email query parameter is required", goerrors.CategoryValidation))
	}

	err := a.Regenerate.Execute(ctx.Context(), RegeneratePasscodeMessage{Email: email})
	if err != nil {
		return RespondError(ctx, err)
	}

	return ctx.JSON(http.StatusOK, map[string]any{
		"message": "OTP regenerated",
	})
}

// EmailPayload carries a bare account email
type EmailPayload struct {
	Email string `json:"email"`
}

// Validate will run validation rules
func (r EmailPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
	)
}

func (a *IdentityController) ForgetPasswordPost(ctx router.Context) error {
	payload := new(EmailPayload)

	if err := ctx.Bind(payload); err != nil {
		return a.badRequest(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return a.badRequest(ctx, err)
	}

	err := a.Regenerate.ExecuteForgotPassword(ctx.Context(), ForgotPasswordMessage{Email: payload.Email})
	if err != nil {
		return RespondError(ctx, err)
	}

	return ctx.JSON(http.StatusOK, map[string]any{
		"message": "OTP sent",
	})
}

// ChangePasswordPayload is the change password request body
type ChangePasswordPayload struct {
	Email           string `json:"email"`
	Code            string `json:"otp"`
	NewPassword     string `json:"new_password"`
	ConfirmPassword string `json:"confirm_password"`
}

// Validate will run validation rules
func (r ChangePasswordPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Code, validation.Required, validation.Length(PasscodeLength, PasscodeLength)),
		validation.Field(&r.NewPassword, validation.Required, validation.Length(6, 100)),
		validation.Field(&r.ConfirmPassword, validation.Required),
	)
}

func (a *IdentityController) ChangePasswordPost(ctx router.Context) error {
	payload := new(ChangePasswordPayload)

	if err := ctx.Bind(payload); err != nil {
		return a.badRequest(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return a.badRequest(ctx, err)
	}

	err := a.ChangePassword.Execute(ctx.Context(), ChangePasswordMessage{
		Email:           payload.Email,
		Code:            payload.Code,
		NewPassword:     payload.NewPassword,
		ConfirmPassword: payload.ConfirmPassword,
	})
	if err != nil {
		return a.respondPasscodeError(ctx, err)
	}

	return ctx.JSON(http.StatusOK, map[string]any{
		"message": "Password changed",
	})
}

func (a *IdentityController) ProfileGet(ctx router.Context) error {
	email, err := a.principalEmail(ctx)
	if err != nil {
		return RespondError(ctx, err)
	}

	user, err := a.Repo.Users().GetByEmail(ctx.Context(), email)
	if err != nil {
		if goerrors.IsNotFound(err) {
			return RespondError(ctx, ErrIdentityNotFound)
		}
		return RespondError(ctx, err)
	}

	return ctx.JSON(http.StatusOK, userResponse(user))
}

// UpdateProfilePayload is the update request body
type UpdateProfilePayload struct {
	Email           string `json:"email"`
	CurrentPassword string `json:"current_password"`
	NewEmail        string `json:"new_email,omitempty"`
	NewPassword     string `json:"new_password,omitempty"`
	Phone           string `json:"phone_number,omitempty"`
}

// Validate will run validation rules
func (r UpdateProfilePayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.CurrentPassword, validation.Required),
		validation.Field(&r.NewEmail, is.Email),
		validation.Field(&r.NewPassword, validation.Length(6, 100)),
	)
}

func (a *IdentityController) UpdatePut(ctx router.Context) error {
	payload := new(UpdateProfilePayload)

	if err := ctx.Bind(payload); err != nil {
		return a.badRequest(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return a.badRequest(ctx, err)
	}

	user, err := a.UpdateProfile.Execute(ctx.Context(), UpdateProfileMessage{
		Email:           payload.Email,
		CurrentPassword: payload.CurrentPassword,
		NewEmail:        payload.NewEmail,
		NewPassword:     payload.NewPassword,
		Phone:           payload.Phone,
	})
	if err != nil {
		return RespondError(ctx, err)
	}

	return ctx.JSON(http.StatusOK, userResponse(user))
}

// DeleteAccountPayload is the delete request body
type DeleteAccountPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate will run validation rules
func (r DeleteAccountPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required),
	)
}

// DeleteAccountHandler refuses to delete an account other than the one the
// bearer token was minted for.
func (a *IdentityController) DeleteAccountHandler(ctx router.Context) error {
	payload := new(DeleteAccountPayload)

	if err := ctx.Bind(payload); err != nil {
		return a.badRequest(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return a.badRequest(ctx, err)
	}

	principal, err := a.principalEmail(ctx)
	if err != nil {
		return RespondError(ctx, err)
	}

	if normalizeEmail(principal) != normalizeEmail(payload.Email) {
		return RespondError(ctx, goerrors.New("cannot delete another user's account", goerrors.CategoryAuthz).
			WithCode(goerrors.CodeForbidden))
	}

	err = a.DeleteAccount.Execute(ctx.Context(), DeleteAccountMessage{
		Email:    payload.Email,
		Password: payload.Password,
	})
	if err != nil {
		return RespondError(ctx, err)
	}

	return ctx.JSON(http.StatusOK, map[string]any{
		"message": "Account deleted",
	})
}

// UnauthorizedHandler converts guard failures into the JSON error envelope.
func (a *IdentityController) UnauthorizedHandler(ctx router.Context, err error) error {
	var richErr *goerrors.Error

	if IsTokenExpiredError(err) {
		richErr = ErrTokenExpired
	} else if IsMalformedError(err) {
		richErr = ErrTokenMalformed
	} else if !goerrors.As(err, &richErr) {
		richErr = goerrors.Wrap(err, goerrors.CategoryAuth, "Invalid authentication token").
			WithCode(goerrors.CodeUnauthorized)
	}

	return RespondError(ctx, richErr)
}

func (a *IdentityController) principalEmail(ctx router.Context) (string, error) {
	claims, ok := GetRouterClaims(ctx, a.Config.GetContextKey())
	if !ok {
		return "", goerrors.New("missing authentication claims", goerrors.CategoryAuth).
			WithCode(goerrors.CodeUnauthorized)
	}
	return claims.Email(), nil
}

// respondPasscodeError collapses the internal passcode failure causes into
// one message so callers cannot probe which part was wrong.
func (a *IdentityController) respondPasscodeError(ctx router.Context, err error) error {
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		switch richErr.TextCode {
		case TextCodePasscodeInvalid, TextCodePasscodeExpired:
			a.Logger.Debug("passcode rejected: %s %s", richErr.TextCode, print.MaybePrettyJSON(richErr.Metadata))
			return ctx.JSON(http.StatusBadRequest, APIErrorResponse{
				Timestamp: timeNow().UTC(),
				Status:    http.StatusBadRequest,
				Error:     http.StatusText(http.StatusBadRequest),
				Message:   "Invalid or expired OTP",
				Path:      ctx.OriginalURL(),
			})
		}
	}
	return RespondError(ctx, err)
}

func (a *IdentityController) badRequest(ctx router.Context, err error) error {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		richErr = goerrors.Wrap(err, goerrors.CategoryValidation, err.Error()).
			WithCode(goerrors.CodeBadRequest)
	}
	return RespondError(ctx, richErr)
}
