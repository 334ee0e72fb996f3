package launch

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEscape(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "plain", input: "hello", want: "'hello'"},
		{name: "empty", input: "", want: "''"},
		{name: "embedded single quote", input: "it's", want: `'it'\''s'`},
		{name: "spaces", input: "a b c", want: "'a b c'"},
		{name: "double quotes", input: `say "hi"`, want: `'say "hi"'`},
		{name: "shell metacharacters", input: "$(rm -rf /) && echo; | > <", want: "'$(rm -rf /) && echo; | > <'"},
		{name: "backticks", input: "`whoami`", want: "'`whoami`'"},
		{name: "newline", input: "line1\nline2", want: "'line1\nline2'"},
		{name: "only quotes", input: "'''", want: `''\'''\'''\'''`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Escape(tt.input))
		})
	}
}

func TestBuildShellCommand(t *testing.T) {
	spec := &Spec{
		BinaryPath: "/usr/local/bin/claude",
		Args:       []string{"--print", "--output-format", "stream-json"},
		WorkingDir: "/tmp/work",
		InputFile:  "/tmp/work/input.txt",
		OutputFile: "/tmp/work/output.jsonl",
	}

	got := BuildShellCommand(spec)
	want := "cat '/tmp/work/input.txt' | nohup '/usr/local/bin/claude' '--print' '--output-format' 'stream-json' >> '/tmp/work/output.jsonl' 2>&1 & echo $!"
	assert.Equal(t, want, got)
}

func TestBuildShellCommand_EnvScopedToBinary(t *testing.T) {
	spec := &Spec{
		BinaryPath: "opencode",
		Args:       []string{"run"},
		Env: []EnvVar{
			{Key: "OPENCODE_CONFIG", Value: "/home/u/config dir/oc.json"},
			{Key: "NO_COLOR", Value: "1"},
		},
		WorkingDir: "/w",
		InputFile:  "/w/in",
		OutputFile: "/w/out",
	}

	got := BuildShellCommand(spec)
	// Env assignments sit after the pipe so they apply to the agent, not cat.
	want := "cat '/w/in' | OPENCODE_CONFIG='/home/u/config dir/oc.json' NO_COLOR='1' nohup 'opencode' 'run' >> '/w/out' 2>&1 & echo $!"
	assert.Equal(t, want, got)
}

func TestBuildShellCommand_HostileTokens(t *testing.T) {
	spec := &Spec{
		BinaryPath: "/opt/agent's bin/cli",
		Args:       []string{"it's", `"quoted"`, "$HOME", "a;b&c"},
		WorkingDir: "/w",
		InputFile:  "/tmp/in put",
		OutputFile: "/tmp/out;rm",
	}

	got := BuildShellCommand(spec)
	want := `cat '/tmp/in put' | nohup '/opt/agent'\''s bin/cli' 'it'\''s' '"quoted"' '$HOME' 'a;b&c' >> '/tmp/out;rm' 2>&1 & echo $!`
	assert.Equal(t, want, got)
}
