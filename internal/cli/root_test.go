package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapquery/internal/cli/config"
	clitest "github.com/leapstack-labs/leapquery/internal/cli/testutil"
)

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	t.Cleanup(config.ResetConfig)

	cmd := NewRootCmd()
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func TestRootCommand_Subcommands(t *testing.T) {
	cmd := NewRootCmd()

	want := []string{"version", "translate", "repl", "schema", "metrics", "memory", "completion"}
	for _, name := range want {
		sub, _, err := cmd.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, sub.Name())
	}

	ask, _, err := cmd.Find([]string{"ask"})
	require.NoError(t, err)
	assert.Equal(t, "translate", ask.Name())

	for _, flag := range []string{"config", "target", "project-dir", "schema", "memory", "engine", "max-attempts", "execution-mode", "output"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(flag), "flag %q should exist", flag)
	}
}

func TestRootCommand_Version(t *testing.T) {
	out, _, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "LeapQuery v"+Version)
}

func TestRootCommand_Completion(t *testing.T) {
	tests := []struct {
		shell string
		want  string
	}{
		{"bash", "leapquery"},
		{"zsh", "#compdef leapquery"},
		{"fish", "complete -c leapquery"},
		{"powershell", "leapquery"},
	}

	for _, tt := range tests {
		t.Run(tt.shell, func(t *testing.T) {
			out, _, err := execute(t, "completion", tt.shell)
			require.NoError(t, err)
			assert.Contains(t, out, tt.want)
		})
	}

	_, _, err := execute(t, "completion", "tcsh")
	assert.Error(t, err)
}

func TestRootCommand_SchemaShow(t *testing.T) {
	dir := clitest.SetupTestProject(t)

	out, _, err := execute(t, "schema", "show", "--project-dir", dir, "-o", "json")
	require.NoError(t, err)

	var doc struct {
		Tables []struct {
			Name string `json:"name"`
		} `json:"tables"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &doc), out)
	require.Len(t, doc.Tables, 2)
	assert.Equal(t, "customers", doc.Tables[0].Name)
	assert.Equal(t, filepath.Join(dir, "leapquery.yaml"), config.GetConfigFileUsed())
}

func TestRootCommand_SchemaShowMarkdown(t *testing.T) {
	dir := clitest.SetupTestProject(t)

	out, _, err := execute(t, "schema", "show", "orders", "--project-dir", dir, "-o", "markdown")
	require.NoError(t, err)
	assert.Contains(t, out, "### Table: orders")
	clitest.AssertNoANSI(t, out)
	clitest.AssertValidMarkdown(t, out)
}

func TestRootCommand_ConfigErrors(t *testing.T) {
	dir := clitest.SetupTestProject(t)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{
			name: "invalid execution mode",
			args: []string{"schema", "show", "--project-dir", dir, "--execution-mode", "yolo"},
			want: "execution_mode",
		},
		{
			name: "unknown target",
			args: []string{"schema", "show", "--project-dir", dir, "--target", "staging"},
			want: `unknown target "staging"`,
		},
		{
			name: "missing schema file",
			args: []string{"schema", "show", "--project-dir", dir, "--schema", filepath.Join(dir, "nope.yaml")},
			want: "failed to load schema",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := execute(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
