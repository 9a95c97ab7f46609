//go:build integration_test || all_tests

package test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/2beens/liftlog/internal/auth"
	"github.com/2beens/liftlog/internal/middleware"
)

type loginResponse struct {
	Token string `json:"token"`
}

func (s *IntegrationTestSuite) doRequest(
	ctx context.Context,
	method, path, token, contentType string,
	body []byte,
) (int, []byte, http.Header) {
	t := s.T()
	t.Helper()

	req, err := http.NewRequestWithContext(ctx, method, serverEndpoint+path, bytes.NewReader(body))
	s.Require().NoError(err)
	req.Header.Set("User-Agent", "test-agent")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set(middleware.AuthTokenHeader, token)
	}

	resp, err := s.httpClient.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	s.Require().NoError(err)

	return resp.StatusCode, respBytes, resp.Header
}

func (s *IntegrationTestSuite) doLogin(ctx context.Context) string {
	loginReqJson, err := json.Marshal(auth.Credentials{
		Username: testUsername,
		Password: testPassword,
	})
	s.Require().NoError(err)

	status, respBytes, _ := s.doRequest(ctx, http.MethodPost, "/a/login", "", "application/json", loginReqJson)
	s.Require().Equal(http.StatusOK, status, string(respBytes))

	var loginResp loginResponse
	s.Require().NoError(json.Unmarshal(respBytes, &loginResp))
	s.Require().NotEmpty(loginResp.Token)

	return loginResp.Token
}
