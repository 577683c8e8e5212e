package server

import (
	"net/http"
	"regexp"
	"testing"

	"utvibe/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var sixDigits = regexp.MustCompile(`\b\d{6}\b`)

func newRedisTestServer(t *testing.T) *testServer {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return newTestServer(t, rdb)
}

func TestSignupFlow(t *testing.T) {
	ts := newRedisTestServer(t)
	mailer := ts.mailer.(*capturingMailer)
	const addr = "bevo@utexas.edu"

	resp, body := ts.do(t, http.MethodPost, "/api/send-otp", "", map[string]string{"email": " Bevo@UTexas.edu "})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "OTP sent successfully", body["message"])
	require.Len(t, mailer.sent, 1)
	assert.Equal(t, addr, mailer.sent[0].To)
	code := sixDigits.FindString(mailer.sent[0].Text)
	require.NotEmpty(t, code)

	signup := map[string]string{"name": "Bevo Longhorn", "email": addr, "password": "hookem2026"}

	resp, _ = ts.do(t, http.MethodPost, "/api/register", "", signup)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, body = ts.do(t, http.MethodPost, "/api/verify-otp", "", map[string]string{"email": addr, "otp": code})
	require.Equal(t, http.StatusOK, resp.StatusCode, body)

	ts.users.On("Create", mock.Anything, mock.MatchedBy(func(u *models.User) bool {
		return u.Email == addr && bcrypt.CompareHashAndPassword([]byte(u.Password), []byte("hookem2026")) == nil
	})).Run(func(args mock.Arguments) {
		args.Get(1).(*models.User).ID = 11
	}).Return(nil)

	resp, body = ts.do(t, http.MethodPost, "/api/register", "", signup)
	require.Equal(t, http.StatusCreated, resp.StatusCode, body)
	assert.NotEmpty(t, body["token"])

	// The verification is single use.
	resp, _ = ts.do(t, http.MethodPost, "/api/register", "", signup)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestVerifyOTP_WrongCode(t *testing.T) {
	ts := newRedisTestServer(t)
	ts.do(t, http.MethodPost, "/api/send-otp", "", map[string]string{"email": "a@utexas.edu"})

	code := sixDigits.FindString(ts.mailer.(*capturingMailer).sent[0].Text)
	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}

	resp, body := ts.do(t, http.MethodPost, "/api/verify-otp", "", map[string]string{"email": "a@utexas.edu", "otp": wrong})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Invalid verification code. Please try again.", body["message"])
}

func TestSendOTP_Failures(t *testing.T) {
	t.Run("invalid email", func(t *testing.T) {
		ts := newRedisTestServer(t)
		resp, _ := ts.do(t, http.MethodPost, "/api/send-otp", "", map[string]string{"email": "not-an-email"})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("mail failure", func(t *testing.T) {
		ts := newRedisTestServer(t)
		ts.mailer.(*capturingMailer).err = assert.AnError
		resp, body := ts.do(t, http.MethodPost, "/api/send-otp", "", map[string]string{"email": "a@utexas.edu"})
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		assert.Equal(t, "Failed to send OTP", body["message"])
	})

	t.Run("no redis", func(t *testing.T) {
		ts := newTestServer(t, nil)
		resp, body := ts.do(t, http.MethodPost, "/api/send-otp", "", map[string]string{"email": "a@utexas.edu"})
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		assert.Equal(t, "Failed to send OTP", body["message"])
	})
}

func TestRegister_Conflict(t *testing.T) {
	ts := newRedisTestServer(t)
	require.NoError(t, ts.redis.Set(t.Context(), "otp:verified:taken@utexas.edu", "1", 0).Err())
	ts.users.On("Create", mock.Anything, mock.Anything).
		Return(models.NewConflictError("An account with this email already exists"))

	resp, body := ts.do(t, http.MethodPost, "/api/register", "",
		map[string]string{"name": "Taken Name", "email": "taken@utexas.edu", "password": "password123"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "An account with this email already exists", body["message"])
}

func TestLoginLogout(t *testing.T) {
	ts := newRedisTestServer(t)
	hash, err := bcrypt.GenerateFromPassword([]byte("hookem2026"), bcrypt.MinCost)
	require.NoError(t, err)
	user := &models.User{ID: 5, Name: "Bevo", Email: "bevo@utexas.edu", Password: string(hash)}
	ts.users.On("GetByEmail", mock.Anything, "bevo@utexas.edu").Return(user, nil)
	ts.users.On("GetByEmail", mock.Anything, "nobody@utexas.edu").Return(nil, models.NewNotFoundError("User not found"))
	ts.users.On("GetByID", mock.Anything, uint(5)).Return(user, nil)

	resp, _ := ts.do(t, http.MethodPost, "/api/login", "", map[string]string{"email": "bevo@utexas.edu", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, body := ts.do(t, http.MethodPost, "/api/login", "", map[string]string{"email": "nobody@utexas.edu", "password": "x"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Invalid email or password", body["message"])

	resp, body = ts.do(t, http.MethodPost, "/api/login", "", map[string]string{"email": "bevo@utexas.edu", "password": "hookem2026"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	token := body["token"].(string)
	assert.Nil(t, body["user"].(map[string]any)["password"])

	resp, body = ts.do(t, http.MethodGet, "/api/me", token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Bevo", body["user"].(map[string]any)["name"])

	resp, _ = ts.do(t, http.MethodPost, "/api/logout", token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = ts.do(t, http.MethodGet, "/api/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Token has been revoked", body["message"])
}
