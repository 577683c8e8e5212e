package server

import (
	"log/slog"
	"strings"
	"time"

	"utvibe/internal/cache"
	"utvibe/internal/email"
	"utvibe/internal/middleware"
	"utvibe/internal/models"
	"utvibe/internal/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const (
	otpSendLimit  = 3
	otpSendWindow = 10 * time.Minute
)

var errInvalidCredentials = models.NewUnauthorizedError("Invalid email or password")

// SendOTP handles POST /api/send-otp
// @Summary Send a verification code
// @Description Emails a six digit code used to verify the address before sign-up
// @Tags auth
// @Accept json
// @Produce json
// @Param request body object{email=string} true "Address to verify"
// @Success 200 {object} object{success=bool,message=string}
// @Failure 400 {object} models.ErrorResponse
// @Failure 429 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /send-otp [post]
func (s *Server) SendOTP(c *fiber.Ctx) error {
	ctx := c.UserContext()
	var req struct {
		Email string `json:"email"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	addr := validation.NormalizeEmail(req.Email)
	if err := validation.ValidateEmail(addr); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError(err.Error()))
	}

	decision, err := middleware.NewLimiter(s.redis, "otp", otpSendLimit, otpSendWindow).Allow(ctx, addr)
	if err != nil {
		middleware.Logger.WarnContext(ctx, "otp rate limit unavailable", slog.String("error", err.Error()))
	} else if !decision.Allowed {
		return c.Status(fiber.StatusTooManyRequests).JSON(models.ErrorResponse{
			Message: "Too many code requests. Please try again later.",
		})
	}

	failed := func(err error) error {
		middleware.Logger.ErrorContext(ctx, "failed to send otp", slog.String("error", err.Error()))
		return models.RespondWithError(c, fiber.StatusInternalServerError,
			models.NewInternalError("Failed to send OTP", err))
	}

	code, err := s.otpStore.Issue(ctx, addr)
	if err != nil {
		return failed(err)
	}
	msg, err := email.OTPMessage(addr, code, s.otpStore.TTL(), time.Now())
	if err != nil {
		return failed(err)
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		return failed(err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "OTP sent successfully",
	})
}

// VerifyOTP handles POST /api/verify-otp
// @Summary Verify an emailed code
// @Tags auth
// @Accept json
// @Produce json
// @Param request body object{email=string,otp=string} true "Address and code"
// @Success 200 {object} object{success=bool,message=string}
// @Failure 400 {object} models.ErrorResponse
// @Router /verify-otp [post]
func (s *Server) VerifyOTP(c *fiber.Ctx) error {
	var req struct {
		Email string `json:"email"`
		OTP   string `json:"otp"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	addr := validation.NormalizeEmail(req.Email)
	code := strings.TrimSpace(req.OTP)
	if addr == "" || code == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Email and code are required"))
	}

	if err := s.otpStore.Verify(c.UserContext(), addr, code); err != nil {
		return models.Respond(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Email verified successfully",
	})
}

// Register handles POST /api/register
// @Summary Create an account
// @Description Requires an address verified through /verify-otp within the last 30 minutes
// @Tags auth
// @Accept json
// @Produce json
// @Param request body object{name=string,email=string,password=string} true "Sign-up request"
// @Success 201 {object} object{success=bool,message=string,token=string,user=models.User}
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /register [post]
func (s *Server) Register(c *fiber.Ctx) error {
	ctx := c.UserContext()
	var req struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	req.Name = strings.TrimSpace(req.Name)
	addr := validation.NormalizeEmail(req.Email)
	if req.Name == "" || addr == "" || req.Password == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Name, email, and password are required"))
	}
	for _, err := range []error{
		validation.ValidateName(req.Name),
		validation.ValidateEmail(addr),
		validation.ValidatePassword(req.Password),
	} {
		if err != nil {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError(err.Error()))
		}
	}

	verified, err := s.otpStore.IsVerified(ctx, addr)
	if err != nil {
		return models.Respond(c, err)
	}
	if !verified {
		return models.RespondWithError(c, fiber.StatusForbidden,
			models.NewForbiddenError("Please verify your email before signing up"))
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError,
			models.NewInternalError("", err))
	}

	user := &models.User{
		Name:     req.Name,
		Email:    addr,
		Password: string(hashed),
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return models.Respond(c, err)
	}
	s.otpStore.Consume(ctx, addr)

	token, err := s.generateToken(user.ID)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError,
			models.NewInternalError("", err))
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "Account created successfully",
		"token":   token,
		"user":    user,
	})
}

// Login handles POST /api/login
// @Summary Sign in
// @Tags auth
// @Accept json
// @Produce json
// @Param request body object{email=string,password=string} true "Credentials"
// @Success 200 {object} object{success=bool,token=string,user=models.User}
// @Failure 401 {object} models.ErrorResponse
// @Router /login [post]
func (s *Server) Login(c *fiber.Ctx) error {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	user, err := s.userRepo.GetByEmail(c.UserContext(), req.Email)
	if err != nil {
		if models.IsCode(err, models.CodeNotFound) {
			return models.RespondWithError(c, fiber.StatusUnauthorized, errInvalidCredentials)
		}
		return models.Respond(c, err)
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)) != nil {
		return models.RespondWithError(c, fiber.StatusUnauthorized, errInvalidCredentials)
	}

	token, err := s.generateToken(user.ID)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError,
			models.NewInternalError("", err))
	}

	return c.JSON(fiber.Map{
		"success": true,
		"token":   token,
		"user":    user,
	})
}

// Logout handles POST /api/logout by revoking the presented token until it expires.
// @Summary Sign out
// @Tags auth
// @Security BearerAuth
// @Produce json
// @Success 200 {object} object{success=bool,message=string}
// @Router /logout [post]
func (s *Server) Logout(c *fiber.Ctx) error {
	claims, _ := c.Locals("tokenClaims").(*jwt.RegisteredClaims)
	if claims != nil && claims.ID != "" && claims.ExpiresAt != nil && s.redis != nil {
		ttl := time.Until(claims.ExpiresAt.Time)
		if ttl > 0 {
			if err := s.redis.Set(c.UserContext(), cache.BlacklistKey(claims.ID), "1", ttl).Err(); err != nil {
				middleware.Logger.WarnContext(c.UserContext(), "failed to revoke token", slog.String("error", err.Error()))
				return models.RespondWithError(c, fiber.StatusInternalServerError,
					models.NewInternalError("Failed to sign out. Please try again.", err))
			}
		}
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Signed out",
	})
}

// Me handles GET /api/me
// @Summary Current user
// @Tags auth
// @Security BearerAuth
// @Produce json
// @Success 200 {object} object{success=bool,user=models.User}
// @Failure 401 {object} models.ErrorResponse
// @Router /me [get]
func (s *Server) Me(c *fiber.Ctx) error {
	userID, _ := c.Locals("userID").(uint)
	user, err := s.userRepo.GetByID(c.UserContext(), userID)
	if err != nil {
		if models.IsCode(err, models.CodeNotFound) {
			return models.RespondWithError(c, fiber.StatusUnauthorized, errSignInRequired)
		}
		return models.Respond(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"user":    user,
	})
}
