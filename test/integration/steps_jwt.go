package integration

import (
	"fmt"
	"strconv"
	"time"

	"github.com/cucumber/godog"
	"github.com/golang-jwt/jwt/v5"
)

func (s *StepsContext) registerJWTSteps(sc *godog.ScenarioContext) {
	sc.Step(`^"([^"]*)" tries to connect with an expired token$`, s.userTriesToConnectWithExpiredToken)
	sc.Step(`^"([^"]*)" tries to connect with a token signed by another key$`, s.userTriesToConnectWithForeignToken)
	sc.Step(`^someone tries to connect without a token$`, s.someoneTriesToConnectWithoutToken)
	sc.Step(`^"([^"]*)" lists locks with an expired token$`, s.userListsLocksWithExpiredToken)
}

// signToken builds an HS256 token for name with the given secret and expiry
func (s *StepsContext) signToken(name, secret string, expiresAt time.Time) (string, error) {
	id, err := s.userID(name)
	if err != nil {
		return "", err
	}
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(id, 10),
		Issuer:    testJWTIssuer,
		IssuedAt:  jwt.NewNumericDate(expiresAt.Add(-time.Hour)),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

func (s *StepsContext) tryDial(token string) {
	if conn, err := s.dial(token); err == nil {
		_ = conn.CloseNow()
	}
}

func (s *StepsContext) userTriesToConnectWithExpiredToken(name string) error {
	token, err := s.signToken(name, testJWTSecret, time.Now().Add(-time.Minute))
	if err != nil {
		return err
	}
	s.tryDial(token)
	return nil
}

func (s *StepsContext) userTriesToConnectWithForeignToken(name string) error {
	token, err := s.signToken(name, "some-other-secret-some-other-secret", time.Now().Add(time.Hour))
	if err != nil {
		return err
	}
	s.tryDial(token)
	return nil
}

func (s *StepsContext) someoneTriesToConnectWithoutToken() error {
	s.tryDial("")
	return nil
}

func (s *StepsContext) userListsLocksWithExpiredToken(name string) error {
	token, err := s.signToken(name, testJWTSecret, time.Now().Add(-time.Minute))
	if err != nil {
		return err
	}
	req, err := newAuthorizedRequest(s.tc.Server.ServerURL+"/locks", token)
	if err != nil {
		return err
	}
	return s.doRequest(req)
}
