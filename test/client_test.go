//go:build integration_test || all_tests

package test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/require"
)

type apiClient struct {
	t      *testing.T
	userID string
	token  string
}

// newUser logs in a fresh random user the same way the auth service does.
func (s *IntegrationTestSuite) newUser(ctx context.Context) *apiClient {
	t := s.T()
	userID := gofakeit.UUID()
	token, err := s.authService.Login(ctx, userID, time.Now())
	require.NoError(t, err)
	return &apiClient{t: t, userID: userID, token: token}
}

func (c *apiClient) do(ctx context.Context, method, path string, body any) (int, []byte) {
	c.t.Helper()

	var reqBody io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		require.NoError(c.t, err)
		reqBody = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, fmt.Sprintf("%s%s", serverEndpoint, path), reqBody)
	require.NoError(c.t, err)
	req.Header.Set("User-Agent", "GymCoach/e2e")
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(c.t, err)
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	require.NoError(c.t, err)

	return resp.StatusCode, respBytes
}

// doJSON requires the expected status and decodes the response into out.
func (c *apiClient) doJSON(ctx context.Context, method, path string, body any, expectedStatus int, out any) {
	c.t.Helper()
	status, respBytes := c.do(ctx, method, path, body)
	require.Equal(c.t, expectedStatus, status, string(respBytes))
	if out != nil {
		require.NoError(c.t, json.Unmarshal(respBytes, out))
	}
}
