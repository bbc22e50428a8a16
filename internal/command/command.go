// Package command describes the external steps a pair goes through as
// plain data.
//
// A CommandSpec is what the pair runner hands to an executor: either a child
// process (program plus argument list, never a shell string) or one of a few
// filesystem operations. Building specs has no side effects, which keeps the
// composer testable and lets a dry run print exactly what would happen.
package command

import (
	"strings"
	"time"
)

// Kind discriminates the CommandSpec variants.
type Kind int

const (
	// KindExec runs Program with Args in Dir.
	KindExec Kind = iota
	// KindWriteFile writes Content to Path, truncating any existing file.
	KindWriteFile
	// KindArchive zips Paths into the archive at Path.
	KindArchive
	// KindRemove deletes Paths. Missing files are not an error.
	KindRemove
	// KindMkdir creates Path and any missing parents.
	KindMkdir
)

// String returns the variant name.
func (k Kind) String() string {
	switch k {
	case KindExec:
		return "exec"
	case KindWriteFile:
		return "write"
	case KindArchive:
		return "archive"
	case KindRemove:
		return "remove"
	case KindMkdir:
		return "mkdir"
	default:
		return "unknown"
	}
}

// redacted replaces secrets in rendered commands.
const redacted = "****"

// CommandSpec is one step to execute. Relative paths are resolved against
// Dir, which is always set explicitly by the composer.
type CommandSpec struct {
	Kind Kind
	// Name is the step label used in logs and errors ("pipeline", "call", ...).
	Name string

	// Program and Args are used by KindExec.
	Program string
	Args    []string

	// Dir is the working directory for KindExec and the base for relative
	// paths in every other kind.
	Dir string

	// Path is the target of KindWriteFile, KindArchive and KindMkdir.
	Path string
	// Content is the data written by KindWriteFile.
	Content string
	// Paths are the archive members of KindArchive and the targets of KindRemove.
	Paths []string

	// Timeout bounds a KindExec step; zero means no deadline.
	Timeout time.Duration

	// Redact lists substrings masked when the spec is rendered.
	Redact []string
}

// Argv returns the full argument vector of an exec step.
func (s CommandSpec) Argv() []string {
	argv := make([]string, 0, len(s.Args)+1)
	argv = append(argv, s.Program)
	return append(argv, s.Args...)
}

// String renders the spec as an equivalent shell line for logs and dry runs.
// It is never passed to a shell.
func (s CommandSpec) String() string {
	var line string
	switch s.Kind {
	case KindExec:
		line = joinQuoted(s.Argv())
	case KindWriteFile:
		line = "echo " + quote(strings.TrimSuffix(s.Content, "\n")) + " > " + quote(s.Path)
	case KindArchive:
		line = "zip -j " + quote(s.Path) + " " + joinQuoted(s.Paths)
	case KindRemove:
		line = "rm -f " + joinQuoted(s.Paths)
	case KindMkdir:
		line = "mkdir -p " + quote(s.Path)
	default:
		line = s.Kind.String()
	}

	if s.Dir != "" && s.Dir != "." {
		line = "(cd " + quote(s.Dir) + " && " + line + ")"
	}
	return s.redact(line)
}

func (s CommandSpec) redact(line string) string {
	for _, secret := range s.Redact {
		if secret != "" {
			line = strings.ReplaceAll(line, secret, redacted)
		}
	}
	return line
}

// Redacted masks the spec's secrets in arbitrary text such as captured output.
func (s CommandSpec) Redacted(text string) string {
	return s.redact(text)
}

func joinQuoted(args []string) string {
	quoted := make([]string, len(args))
	for i, a := range args {
		quoted[i] = quote(a)
	}
	return strings.Join(quoted, " ")
}

// quote single-quotes a word when it contains anything a POSIX shell
// would interpret.
func quote(s string) string {
	if s == "" {
		return "''"
	}
	if strings.IndexFunc(s, needsQuote) < 0 {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func needsQuote(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return false
	}
	return !strings.ContainsRune("-_./:=,+@%", r)
}
