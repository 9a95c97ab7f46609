//go:build integration_test || all_tests

package test

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/stretchr/testify/assert"

	"github.com/2beens/liftlog/internal/auth"
)

func (s *IntegrationTestSuite) TestLogin() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cases := map[string]struct {
		credentials        auth.Credentials
		expectedStatusCode int
		expectedBody       string
	}{
		"bad password": {
			credentials:        auth.Credentials{Username: testUsername, Password: "bad-password"},
			expectedStatusCode: http.StatusBadRequest,
			expectedBody:       "error, wrong credentials",
		},
		"bad username": {
			credentials:        auth.Credentials{Username: "someone", Password: testPassword},
			expectedStatusCode: http.StatusBadRequest,
			expectedBody:       "error, wrong credentials",
		},
		"empty password": {
			credentials:        auth.Credentials{Username: testUsername},
			expectedStatusCode: http.StatusBadRequest,
			expectedBody:       "error, password empty",
		},
	}

	for name, tc := range cases {
		s.Run(name, func() {
			t := s.T()
			reqJson, err := json.Marshal(tc.credentials)
			s.Require().NoError(err)

			status, body, _ := s.doRequest(ctx, http.MethodPost, "/a/login", "", "application/json", reqJson)
			assert.Equal(t, tc.expectedStatusCode, status)
			assert.Equal(t, tc.expectedBody, strings.TrimSpace(string(body)))
		})
	}
}

func (s *IntegrationTestSuite) TestLogin_Logout() {
	t := s.T()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	token := s.doLogin(ctx)

	status, _, _ := s.doRequest(ctx, http.MethodGet, "/workouts/exercises", token, "", nil)
	assert.Equal(t, http.StatusOK, status)

	status, body, _ := s.doRequest(ctx, http.MethodGet, "/a/logout", token, "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "logged-out", string(body))

	// the token is gone now
	status, _, _ = s.doRequest(ctx, http.MethodGet, "/workouts/exercises", token, "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _, _ = s.doRequest(ctx, http.MethodGet, "/a/logout", token, "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}
