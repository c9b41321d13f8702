package server

import (
	"net/http"
	"testing"

	"github.com/jonathan/change-scorer/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const registerBody = `{"name": "Ada", "email": "Ada@Example.com", "password": "correct-horse"}`

func TestAuthHandler_Register(t *testing.T) {
	s, _ := setupTestServer(t)

	rec := doRequest(t, s, http.MethodPost, "/auth/register", registerBody, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	resp := decode[types.LoginResponse](t, rec)
	require.NotNil(t, resp.User)
	assert.Equal(t, "ada@example.com", resp.User.Email)
	assert.NotEmpty(t, resp.Token)
	assert.NotContains(t, rec.Body.String(), "password")

	claims, err := s.jwtService.ValidateToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, claims.GetUserID())

	// The token unlocks protected routes.
	rec = doRequest(t, s, http.MethodPost, "/requests", `{"title": "x", "attributes": {}}`, resp.Token)
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestAuthHandler_RegisterDuplicateEmail(t *testing.T) {
	s, _ := setupTestServer(t)

	rec := doRequest(t, s, http.MethodPost, "/auth/register", registerBody, "")
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doRequest(t, s, http.MethodPost, "/auth/register",
		`{"name": "Other", "email": "ada@example.com", "password": "another-pass"}`, "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, errorMessage(t, rec), "email already registered")
}

func TestAuthHandler_RegisterValidation(t *testing.T) {
	s, _ := setupTestServer(t)

	tests := []struct {
		name      string
		body      string
		wantError string
	}{
		{"invalid JSON", `{`, "Invalid request body"},
		{"missing name", `{"email": "a@b.co", "password": "12345678"}`, "Name"},
		{"bad email", `{"name": "A", "email": "nope", "password": "12345678"}`, "Email"},
		{"short password", `{"name": "A", "email": "a@b.co", "password": "short"}`, "Password"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(t, s, http.MethodPost, "/auth/register", tt.body, "")
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, errorMessage(t, rec), tt.wantError)
		})
	}
}

func TestAuthHandler_Login(t *testing.T) {
	s, _ := setupTestServer(t)

	rec := doRequest(t, s, http.MethodPost, "/auth/register", registerBody, "")
	require.Equal(t, http.StatusCreated, rec.Code)
	registered := decode[types.LoginResponse](t, rec)

	rec = doRequest(t, s, http.MethodPost, "/auth/login", `{"email": "ADA@example.com", "password": "correct-horse"}`, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[types.LoginResponse](t, rec)
	assert.Equal(t, registered.User.ID, resp.User.ID)
	assert.NotEmpty(t, resp.Token)
}

func TestAuthHandler_LoginFailures(t *testing.T) {
	s, _ := setupTestServer(t)

	rec := doRequest(t, s, http.MethodPost, "/auth/register", registerBody, "")
	require.Equal(t, http.StatusCreated, rec.Code)

	wrongPassword := doRequest(t, s, http.MethodPost, "/auth/login", `{"email": "ada@example.com", "password": "wrong-horse"}`, "")
	unknownEmail := doRequest(t, s, http.MethodPost, "/auth/login", `{"email": "bob@example.com", "password": "correct-horse"}`, "")

	assert.Equal(t, http.StatusUnauthorized, wrongPassword.Code)
	assert.Equal(t, http.StatusUnauthorized, unknownEmail.Code)
	assert.Equal(t, errorMessage(t, wrongPassword), errorMessage(t, unknownEmail))

	rec = doRequest(t, s, http.MethodPost, "/auth/login", `{"email": "ada@example.com"}`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExtractValidationErrors(t *testing.T) {
	req := types.LoginRequest{Email: "not-an-email", Password: "x"}
	assert.Equal(t, "validation error: Email - email", extractValidationErrors(req.Validate()))
	assert.Equal(t, "validation error: invalid request", extractValidationErrors(assert.AnError))
}

func TestToValidationError(t *testing.T) {
	req := types.CreateUserRequest{Email: "a@b.co", Password: "12345678"}
	err := toValidationError(req.Validate())

	var ve *ErrValidation
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "Name", ve.Field)
	assert.Equal(t, "required", ve.Message)
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(err))
}
