package command

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tutorchat-ai/tutorchat/internal/registry"
)

func TestIsCommand(t *testing.T) {
	assert.True(t, IsCommand("/help"))
	assert.True(t, IsCommand("  /mcp list"))
	assert.False(t, IsCommand("how do goroutines work?"))
	assert.False(t, IsCommand("the /tmp directory"))
}

func TestParse(t *testing.T) {
	tests := []struct {
		input string
		want  Command
	}{
		{"/help", Help{}},
		{"/clear", Clear{}},
		{"/tutor", ToggleTutor{}},
		{"/togglewebsearch", ToggleWebSearch{}},
		{"/quit", Quit{}},
		{"/exit", Quit{}},
		{"/HELP", Help{}},
		{"  /clear  ", Clear{}},
		{"/mcp", McpHelp{}},
		{"/mcp help", McpHelp{}},
		{"/mcp list", McpList{}},
		{"/mcp test", McpTest{}},
		{"/mcp test docs", McpTest{Name: "docs"}},
		{"/mcp status", McpStatus{}},
		{"/mcp status docs", McpStatus{Name: "docs"}},
		{"/mcp add", McpAdd{Interactive: true}},
		{"/mcp add docs stdio docs-mcp", McpAdd{Name: "docs", Transport: "stdio", Target: "docs-mcp", Args: []string{}}},
		{"/mcp add web sse https://example.com/sse", McpAdd{Name: "web", Transport: "sse", Target: "https://example.com/sse", Args: []string{}}},
		{"/mcp add docs stdio npx -y docs-server", McpAdd{Name: "docs", Transport: "stdio", Target: "npx", Args: []string{"-y", "docs-server"}}},
		{"/mcp remove docs", McpRemove{Name: "docs"}},
		{"/mcp enable docs", McpEnable{Name: "docs"}},
		{"/mcp disable docs", McpDisable{Name: "docs"}},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := Parse(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseUnknownCommand(t *testing.T) {
	_, err := Parse("/frobnicate")
	var unknown *UnknownCommandError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "/frobnicate", unknown.Raw)

	_, err = Parse("/mcp frobnicate")
	require.ErrorAs(t, err, &unknown)
}

func TestParseInvalidArguments(t *testing.T) {
	for _, input := range []string{
		"/mcp remove",
		"/mcp enable",
		"/mcp disable",
		"/mcp add docs stdio",
	} {
		t.Run(input, func(t *testing.T) {
			_, err := Parse(input)
			var invalid *InvalidArgumentsError
			require.ErrorAs(t, err, &invalid)
			assert.NotEmpty(t, invalid.Usage)
		})
	}
}

func TestAddWizard_StdioFlow(t *testing.T) {
	w := NewAddWizard(nil)

	assert.Equal(t, StepName, w.Step())
	require.NoError(t, w.Input("docs"))
	assert.Equal(t, StepTransport, w.Step())
	require.NoError(t, w.Input("stdio"))
	assert.Equal(t, StepTarget, w.Step())
	require.NoError(t, w.Input("npx -y docs-server"))
	require.True(t, w.Done())

	cfg := w.Result()
	assert.Equal(t, "docs", cfg.Name)
	assert.Equal(t, registry.TransportStdio, cfg.Transport)
	assert.Equal(t, "npx", cfg.Command)
	assert.Equal(t, []string{"-y", "docs-server"}, cfg.Args)
	assert.True(t, cfg.Enabled)
}

func TestAddWizard_URLFlow(t *testing.T) {
	w := NewAddWizard(nil)
	require.NoError(t, w.Input("web"))
	require.NoError(t, w.Input("sse"))
	require.NoError(t, w.Input("https://example.com/sse"))
	require.True(t, w.Done())
	assert.Equal(t, "https://example.com/sse", w.Result().URL)
}

func TestAddWizard_InvalidStepRepeats(t *testing.T) {
	w := NewAddWizard(func(name string) bool { return name == "taken" })

	// Bad name keeps the wizard on the name step; earlier failures do not
	// poison later answers.
	require.Error(t, w.Input("two words"))
	assert.Equal(t, StepName, w.Step())
	require.Error(t, w.Input("taken"))
	assert.Equal(t, StepName, w.Step())
	require.NoError(t, w.Input("docs"))

	require.Error(t, w.Input("carrier-pigeon"))
	assert.Equal(t, StepTransport, w.Step())
	require.NoError(t, w.Input("http"))

	require.Error(t, w.Input("not a url"))
	assert.Equal(t, StepTarget, w.Step())
	require.NoError(t, w.Input("https://example.com/mcp"))
	assert.True(t, w.Done())
	assert.Equal(t, "docs", w.Result().Name)
}

func TestAddWizard_Cancel(t *testing.T) {
	w := NewAddWizard(nil)
	require.NoError(t, w.Input("docs"))
	assert.ErrorIs(t, w.Input("cancel"), ErrWizardAborted)
}

func TestAddWizard_Prompts(t *testing.T) {
	w := NewAddWizard(nil)
	assert.Contains(t, w.Prompt(), "name")
	require.NoError(t, w.Input("docs"))
	assert.Contains(t, w.Prompt(), "stdio")
	require.NoError(t, w.Input("stdio"))
	assert.Contains(t, w.Prompt(), "Command")

	u := NewAddWizard(nil)
	require.NoError(t, u.Input("web"))
	require.NoError(t, u.Input("http"))
	assert.Contains(t, u.Prompt(), "URL")
}
