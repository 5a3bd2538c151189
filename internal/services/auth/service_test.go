package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/gamelobby/internal/dependencies/mocks"
	"github.com/mcoot/gamelobby/internal/model"
)

type ServiceSuite struct {
	suite.Suite
	clock   *mocks.MockClock
	service *Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	cfg := DefaultConfig()
	cfg.Secret = "test-secret"
	s.service = New(s.clock, cfg)
}

func (s *ServiceSuite) principal() model.Principal {
	return model.Principal{
		Identity: "google-oauth2|1234",
		Email:    "alice@example.com",
		Nickname: "Alice",
	}
}

func (s *ServiceSuite) TestIssueAndVerify() {
	token, err := s.service.Issue(s.principal())
	s.Require().NoError(err)
	s.NotEmpty(token)

	p, err := s.service.Verify(token)
	s.Require().NoError(err)
	s.Equal(s.principal(), *p)
}

func (s *ServiceSuite) TestIssueRequiresIdentity() {
	_, err := s.service.Issue(model.Principal{Email: "alice@example.com"})
	s.ErrorIs(err, ErrMissingIdentity)
}

func (s *ServiceSuite) TestVerifyExpiredToken() {
	token, err := s.service.Issue(s.principal())
	s.Require().NoError(err)

	s.clock.Advance(25 * time.Hour)

	_, err = s.service.Verify(token)
	s.ErrorIs(err, ErrInvalidToken)
}

func (s *ServiceSuite) TestVerifyWrongSecret() {
	other := New(s.clock, Config{Secret: "other-secret"})
	token, err := other.Issue(s.principal())
	s.Require().NoError(err)

	_, err = s.service.Verify(token)
	s.ErrorIs(err, ErrInvalidToken)
}

func (s *ServiceSuite) TestVerifyRejectsOtherAlgorithms() {
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "google-oauth2|1234",
			Issuer:    "gamelobby",
			ExpiresAt: jwt.NewNumericDate(s.clock.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	s.Require().NoError(err)

	_, err = s.service.Verify(token)
	s.ErrorIs(err, ErrInvalidToken)
}

func (s *ServiceSuite) TestVerifyGarbage() {
	_, err := s.service.Verify("not-a-token")
	s.ErrorIs(err, ErrInvalidToken)
}
