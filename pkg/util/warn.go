package util

import (
	"fmt"
	"os"

	"vslc/pkg/config"
	"vslc/pkg/token"
)

// Warn prints a formatted warning message if the corresponding warning is enabled
func Warn(cfg *config.Config, wt config.Warning, tok token.Token, format string, args ...interface{}) {
	if cfg == nil || !cfg.IsWarningEnabled(wt) {
		return
	}
	filename, line, col := findFileAndLine(tok)
	warningName := cfg.Warnings[wt].Name
	fmt.Fprintf(os.Stderr, "%s:%d:%d: \033[33mwarning:\033[0m ", filename, line, col)
	fmt.Fprintf(os.Stderr, format, args...)
	fmt.Fprintf(os.Stderr, " [-W%s]\n", warningName)
	printErrorLine(os.Stderr, tok)
}
