//go:build integration_test || all_tests

package test

import (
	"context"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"

	workoutsmcp "github.com/2beens/liftlog/internal/workouts/mcp"
)

// mcpSecretTransport adds the shared MCP secret to every request
type mcpSecretTransport struct {
	secret string
	base   http.RoundTripper
}

func (st *mcpSecretTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set(workoutsmcp.SecretHeader, st.secret)
	return st.base.RoundTrip(req)
}

func (s *IntegrationTestSuite) TestMCP_ListAndCallTools() {
	t := s.T()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client := mcp.NewClient(&mcp.Implementation{Name: "liftlog-integration-test", Version: "v0.0.1"}, nil)
	session, err := client.Connect(ctx, &mcp.StreamableClientTransport{
		Endpoint: serverEndpoint + "/mcp",
		HTTPClient: &http.Client{
			Transport: &mcpSecretTransport{
				secret: testMCPSecret,
				base:   http.DefaultTransport,
			},
		},
	}, nil)
	s.Require().NoError(err)
	defer func() {
		assert.NoError(t, session.Close())
	}()

	tools, err := session.ListTools(ctx, nil)
	s.Require().NoError(err)
	toolNames := make([]string, 0, len(tools.Tools))
	for _, tool := range tools.Tools {
		toolNames = append(toolNames, tool.Name)
	}
	assert.ElementsMatch(t, []string{
		"list_exercises",
		"get_volume_table",
		"get_exercise_series",
		"get_exercise_stats",
		"get_exercise_summary",
	}, toolNames)

	res, err := session.CallTool(ctx, &mcp.CallToolParams{
		Name:      "get_volume_table",
		Arguments: map[string]any{"from_date": "not-a-date"},
	})
	s.Require().NoError(err)
	assert.True(t, res.IsError)

	res, err = session.CallTool(ctx, &mcp.CallToolParams{
		Name:      "list_exercises",
		Arguments: map[string]any{},
	})
	s.Require().NoError(err)
	assert.False(t, res.IsError)
	s.Require().NotEmpty(res.Content)
	_, isText := res.Content[0].(*mcp.TextContent)
	assert.True(t, isText)
}

func (s *IntegrationTestSuite) TestMCP_WrongSecret() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	status, _, _ := s.doRequest(ctx, http.MethodPost, "/mcp", "", "application/json", []byte(`{}`))
	s.Equal(http.StatusUnauthorized, status)

	client := mcp.NewClient(&mcp.Implementation{Name: "liftlog-integration-test", Version: "v0.0.1"}, nil)
	_, err := client.Connect(ctx, &mcp.StreamableClientTransport{
		Endpoint: serverEndpoint + "/mcp",
		HTTPClient: &http.Client{
			Transport: &mcpSecretTransport{
				secret: "wrong",
				base:   http.DefaultTransport,
			},
		},
	}, nil)
	s.Error(err)
}
