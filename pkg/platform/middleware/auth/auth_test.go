package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	id "assura/pkg/domain"
	"assura/pkg/requestcontext"
)

// MockJWTValidator is a testify mock for JWTValidator
type MockJWTValidator struct {
	mock.Mock
}

func (m *MockJWTValidator) ValidateToken(tokenString string) (*JWTClaims, error) {
	args := m.Called(tokenString)
	if claims := args.Get(0); claims != nil {
		return claims.(*JWTClaims), args.Error(1)
	}
	return nil, args.Error(1)
}

// captureHandler records whether it ran and the context it saw.
type captureHandler struct {
	called  bool
	context context.Context
}

func (m *captureHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	m.called = true
	m.context = r.Context()
	w.WriteHeader(http.StatusOK)
}

type AuthMiddlewareTestSuite struct {
	suite.Suite
	validator   *MockJWTValidator
	logger      *slog.Logger
	nextHandler *captureHandler
}

func TestAuthMiddlewareTestSuite(t *testing.T) {
	suite.Run(t, new(AuthMiddlewareTestSuite))
}

func (s *AuthMiddlewareTestSuite) SetupTest() {
	s.validator = new(MockJWTValidator)
	s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	s.nextHandler = &captureHandler{}
}

func (s *AuthMiddlewareTestSuite) TearDownTest() {
	s.validator.AssertExpectations(s.T())
}

func (s *AuthMiddlewareTestSuite) makeRequest(authHeader string) *httptest.ResponseRecorder {
	handler := RequireAuth(s.validator, s.logger)(s.nextHandler)
	req := httptest.NewRequest(http.MethodGet, "/gdpr/export/42", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func (s *AuthMiddlewareTestSuite) TestValidToken() {
	s.validator.On("ValidateToken", "valid-token").Return(&JWTClaims{UserID: "1", Role: "admin", JTI: "jti-1"}, nil)

	w := s.makeRequest("Bearer valid-token")

	require.True(s.T(), s.nextHandler.called)
	assert.Equal(s.T(), http.StatusOK, w.Code)
	assert.Equal(s.T(), id.UserID(1), requestcontext.UserID(s.nextHandler.context))
	assert.Equal(s.T(), id.RoleAdmin, requestcontext.Role(s.nextHandler.context))
}

func (s *AuthMiddlewareTestSuite) TestInvalidToken() {
	s.validator.On("ValidateToken", "bad-token").Return(nil, errors.New("token expired"))

	w := s.makeRequest("Bearer bad-token")

	assert.False(s.T(), s.nextHandler.called)
	assert.Equal(s.T(), http.StatusUnauthorized, w.Code)
	assert.Equal(s.T(), "application/json", w.Header().Get("Content-Type"))
	assert.JSONEq(s.T(), `{"error":"unauthorized","error_description":"Invalid or expired token"}`, w.Body.String())
}

func (s *AuthMiddlewareTestSuite) TestMalformedClaims() {
	s.Run("non-numeric subject", func() {
		s.validator.On("ValidateToken", "t1").Return(&JWTClaims{UserID: "abc", Role: "admin"}, nil).Once()
		w := s.makeRequest("Bearer t1")
		assert.Equal(s.T(), http.StatusUnauthorized, w.Code)
	})

	s.Run("unknown role", func() {
		s.validator.On("ValidateToken", "t2").Return(&JWTClaims{UserID: "1", Role: "superuser"}, nil).Once()
		w := s.makeRequest("Bearer t2")
		assert.Equal(s.T(), http.StatusUnauthorized, w.Code)
	})

	assert.False(s.T(), s.nextHandler.called)
}

func (s *AuthMiddlewareTestSuite) TestMissingOrMalformedHeader() {
	for _, header := range []string{"", "token-without-bearer", "Basic dXNlcjpwYXNz", "bearer token"} {
		s.Run(header, func() {
			w := s.makeRequest(header)
			assert.Equal(s.T(), http.StatusUnauthorized, w.Code)
			assert.JSONEq(s.T(),
				`{"error":"unauthorized","error_description":"Missing or invalid Authorization header"}`,
				w.Body.String(),
			)
		})
	}
	assert.False(s.T(), s.nextHandler.called)
}

func (s *AuthMiddlewareTestSuite) TestRequireRole() {
	guard := RequireRole(s.logger, id.RoleAdmin, id.RoleBroker)

	serve := func(role id.Role) (*httptest.ResponseRecorder, bool) {
		next := &captureHandler{}
		req := httptest.NewRequest(http.MethodGet, "/gdpr/export/42", nil)
		req = req.WithContext(requestcontext.WithPrincipal(req.Context(), id.UserID(3), role))
		w := httptest.NewRecorder()
		guard(next).ServeHTTP(w, req)
		return w, next.called
	}

	s.Run("allowed role passes", func() {
		w, called := serve(id.RoleBroker)
		s.True(called)
		s.Equal(http.StatusOK, w.Code)
	})

	s.Run("other role is forbidden", func() {
		w, called := serve(id.RoleClient)
		s.False(called)
		s.Equal(http.StatusForbidden, w.Code)
		s.JSONEq(`{"error":"forbidden","error_description":"Insufficient role for this operation"}`, w.Body.String())
	})

	s.Run("missing principal is forbidden", func() {
		w, called := serve("")
		s.False(called)
		s.Equal(http.StatusForbidden, w.Code)
	})
}
