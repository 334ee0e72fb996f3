package launch

import "strings"

// Escape quotes a string for safe use as a single shell token. The token is
// wrapped in single quotes, with embedded single quotes rewritten as `'\''`.
// Round-tripping through a shell reproduces the original string exactly.
func Escape(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// BuildShellCommand builds the detached launch command for a spec:
//
//	cat <in> | [ENV=val ...] nohup <bin> <args> >> <out> 2>&1 & echo $!
//
// Piece by piece:
//   - cat reads the input file and pipes it to stdin (the CLIs' streaming
//     modes reject stdin from file redirection, so a pipe is required)
//   - nohup makes the process immune to hangup when the terminal closes
//   - >> appends stdout to the output file, 2>&1 folds stderr in
//   - & backgrounds the process, echo $! prints its PID as the sole output
//
// Environment overrides are placed after the pipe so they scope to the agent
// binary, not to cat. Every token is escaped; embedded whitespace or quotes
// in paths and arguments cannot break tokenization.
func BuildShellCommand(spec *Spec) string {
	var b strings.Builder

	b.WriteString("cat ")
	b.WriteString(Escape(spec.InputFile))
	b.WriteString(" | ")

	for _, ev := range spec.Env {
		b.WriteString(ev.Key)
		b.WriteString("=")
		b.WriteString(Escape(ev.Value))
		b.WriteString(" ")
	}

	b.WriteString("nohup ")
	b.WriteString(Escape(spec.BinaryPath))
	for _, arg := range spec.Args {
		b.WriteString(" ")
		b.WriteString(Escape(arg))
	}

	b.WriteString(" >> ")
	b.WriteString(Escape(spec.OutputFile))
	b.WriteString(" 2>&1 & echo $!")

	return b.String()
}
