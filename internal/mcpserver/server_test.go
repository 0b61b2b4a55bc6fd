package mcpserver

import (
	"context"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metalagman/gptbench/internal/normalize"
	"github.com/metalagman/gptbench/internal/tools"
)

func newServer(t *testing.T) (*tools.Registry, func(name string, args any) *mcp.CallToolResult) {
	t.Helper()
	reg, err := tools.New(tools.Options{
		BaseDir: t.TempDir(),
		Now:     func() time.Time { return time.Date(2024, time.March, 10, 12, 0, 0, 0, time.UTC) },
	})
	require.NoError(t, err)
	s, err := New("test", reg, normalize.New(reg))
	require.NoError(t, err)

	call := func(name string, args any) *mcp.CallToolResult {
		tool := s.GetTool(name)
		require.NotNil(t, tool, name)
		var req mcp.CallToolRequest
		req.Params.Name = name
		req.Params.Arguments = args
		res, err := tool.Handler(context.Background(), req)
		require.NoError(t, err)
		return res
	}
	return reg, call
}

func TestServerListsRegistryTools(t *testing.T) {
	t.Parallel()

	reg, _ := newServer(t)
	s, err := New("test", reg, normalize.New(reg))
	require.NoError(t, err)

	listed := s.ListTools()
	assert.Len(t, listed, len(reg.Specs()))
	calc, ok := listed["calculator"]
	require.True(t, ok)
	assert.Contains(t, calc.Tool.Description, "calculator(")
	assert.NotEmpty(t, calc.Tool.RawInputSchema)
}

func TestServerCallsThroughNormalizer(t *testing.T) {
	t.Parallel()

	_, call := newServer(t)

	res := call("calculator", map[string]any{"input": map[string]any{"expr": "15 * 7"}})
	require.False(t, res.IsError)
	data, ok := res.StructuredContent.(map[string]any)
	require.True(t, ok)
	assert.EqualValues(t, 105, data["result"])

	res = call("get_weather", map[string]any{"city": "Tokyo"})
	require.False(t, res.IsError)
	data = res.StructuredContent.(map[string]any)
	assert.Equal(t, "Tokyo", data["location"])
}

func TestServerReportsToolErrors(t *testing.T) {
	t.Parallel()

	_, call := newServer(t)
	res := call("read_file", map[string]any{"path": "missing.txt"})
	assert.True(t, res.IsError)
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	assert.Contains(t, text.Text, `"error"`)
}
