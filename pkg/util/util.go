package util

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"vslc/pkg/token"
)

// SourceFileRecord tracks the name and content of a single source file.
type SourceFileRecord struct {
	Name    string
	Content []rune
}

var sourceFiles []SourceFileRecord

// SetSourceFiles stores the source code for all input files for rich error messages
func SetSourceFiles(files []SourceFileRecord) {
	sourceFiles = files
}

// findFileAndLine converts a global token to a file-specific location
func findFileAndLine(tok token.Token) (filename string, line, col int) {
	if tok.FileIndex < 0 || tok.FileIndex >= len(sourceFiles) {
		return "unknown", tok.Line, tok.Column
	}
	return sourceFiles[tok.FileIndex].Name, tok.Line, tok.Column
}

// printErrorLine prints the source line and a caret indicating the error position
func printErrorLine(stream *os.File, tok token.Token) {
	if tok.FileIndex < 0 || tok.FileIndex >= len(sourceFiles) || tok.Line == 0 {
		return
	}

	content := sourceFiles[tok.FileIndex].Content
	lineNum := tok.Line
	lineStart := 0
	for i, r := range content {
		if lineNum <= 1 {
			break
		}
		if r == '\n' {
			lineNum--
			lineStart = i + 1
		}
	}

	lineEnd := len(content)
	for i := lineStart; i < len(content); i++ {
		if content[i] == '\n' {
			lineEnd = i
			break
		}
	}

	fmt.Fprintf(stream, "  %s\n", string(content[lineStart:lineEnd]))

	fmt.Fprintf(stream, "  %s\033[32m^", strings.Repeat(" ", tok.Column-1))
	if tok.Len > 1 {
		fmt.Fprintf(stream, "%s", strings.Repeat("~", tok.Len-1))
	}
	fmt.Fprintln(stream, "\033[0m")
}

// Error prints a formatted error message and exits the program. It is
// reserved for front-end contract violations (lexer and parser); the
// later passes collect Diagnostics instead of terminating.
func Error(tok token.Token, format string, args ...interface{}) {
	filename, line, col := findFileAndLine(tok)
	fmt.Fprintf(os.Stderr, "%s:%d:%d: \033[31merror:\033[0m ", filename, line, col)
	fmt.Fprintf(os.Stderr, format, args...)
	fmt.Fprintln(os.Stderr)
	printErrorLine(os.Stderr, tok)
	os.Exit(1)
}

// Diagnostic is one positioned compiler error.
type Diagnostic struct {
	Tok     token.Token
	Message string
}

func (d *Diagnostic) Error() string {
	filename, line, col := findFileAndLine(d.Tok)
	return fmt.Sprintf("%s:%d:%d: %s", filename, line, col, d.Message)
}

// Diagnostics accumulates errors across a whole pass, so a single run can
// report every unresolved name or duplicate declaration instead of
// stopping at the first.
type Diagnostics struct {
	List []*Diagnostic
}

func (ds *Diagnostics) Errorf(tok token.Token, format string, args ...interface{}) {
	ds.List = append(ds.List, &Diagnostic{Tok: tok, Message: fmt.Sprintf(format, args...)})
}

func (ds *Diagnostics) HasErrors() bool { return len(ds.List) > 0 }

// Err joins all collected diagnostics into one error, or returns nil.
func (ds *Diagnostics) Err() error {
	if len(ds.List) == 0 {
		return nil
	}
	errs := make([]error, len(ds.List))
	for i, d := range ds.List {
		errs[i] = d
	}
	return errors.Join(errs...)
}
