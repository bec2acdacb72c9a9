package main

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"vslc/pkg/ast"
	"vslc/pkg/cli"
	"vslc/pkg/codegen"
	"vslc/pkg/config"
	"vslc/pkg/lexer"
	"vslc/pkg/optimizer"
	"vslc/pkg/parser"
	"vslc/pkg/symbols"
	"vslc/pkg/token"
	"vslc/pkg/util"
)

func main() {
	app := cli.NewApp("vslc")
	app.Synopsis = "[options] <input.vsl> ..."
	app.Description = "A compiler for VSL, a very simple language. Compiles straight to x86-64 System V assembly."

	var (
		outFile     string
		target      string
		asmOnly     bool
		dumpAST     bool
		dumpSymbols bool
		graphviz    bool
		linkerArgs  []string
	)

	fs := app.FlagSet
	fs.String(&outFile, "output", "o", "a.out", "Place the output into <file>.", "file")
	fs.String(&target, "target", "t", "", "Set the target ABI. Defaults to the host.", "target")
	fs.Bool(&asmOnly, "assembly", "S", false, "Emit assembly and stop before assembling and linking.")
	fs.Bool(&dumpAST, "dump-ast", "", false, "Print the syntax tree after optimization and exit.")
	fs.Bool(&dumpSymbols, "dump-symbols", "", false, "Print the symbol tables and string pool.")
	fs.Bool(&graphviz, "graphviz", "", false, "Print the syntax tree in GraphViz dot format and exit.")
	fs.List(&linkerArgs, "linker-arg", "L", "Pass an argument to the linker.", "arg")

	cfg := config.NewConfig()
	fs.AddFlagGroup("W", "Warnings", groupEntries(len(cfg.Warnings), func(i int) (string, string, bool) {
		info := cfg.Warnings[config.Warning(i)]
		return info.Name, info.Description, info.Enabled
	}))
	fs.AddFlagGroup("F", "Features", groupEntries(len(cfg.Features), func(i int) (string, string, bool) {
		info := cfg.Features[config.Feature(i)]
		return info.Name, info.Description, info.Enabled
	}))

	app.Action = func(inputFiles []string) error {
		applyGroupFlags(fs.Group("W"), func(name string, enabled bool) bool {
			if name == "all" {
				cfg.SetAllWarnings(enabled)
				return true
			}
			wt, ok := cfg.WarningMap[name]
			if ok {
				cfg.SetWarning(wt, enabled)
			}
			return ok
		})
		applyGroupFlags(fs.Group("F"), func(name string, enabled bool) bool {
			ft, ok := cfg.FeatureMap[name]
			if ok {
				cfg.SetFeature(ft, enabled)
			}
			return ok
		})

		if graphviz {
			cfg.SetFeature(config.FeatGraphviz, true)
		}

		if err := cfg.SetTarget(runtime.GOOS, runtime.GOARCH, target); err != nil {
			return reportError(err)
		}
		cfg.LinkerArgs = append(cfg.LinkerArgs, linkerArgs...)

		if len(inputFiles) == 0 {
			return reportError(fmt.Errorf("no input files specified"))
		}

		records, tokens := readAndTokenizeFiles(inputFiles)
		util.SetSourceFiles(records)

		root := parser.Parse(tokens)
		if cfg.IsFeatureEnabled(config.FeatFold) {
			root = optimizer.Fold(root, cfg)
		}
		if cfg.IsFeatureEnabled(config.FeatDCE) {
			optimizer.RemoveUnreachable(root, cfg)
		}

		if dumpAST {
			ast.Fprint(os.Stdout, root)
			return nil
		}
		if cfg.IsFeatureEnabled(config.FeatGraphviz) {
			ast.FprintGraphviz(os.Stdout, root)
			return nil
		}

		binds, err := symbols.Bind(root)
		if err != nil {
			return reportError(err)
		}
		if dumpSymbols {
			symbols.Fprint(os.Stdout, binds)
			return nil
		}

		var asm strings.Builder
		if err := codegen.Generate(&asm, root, binds, cfg); err != nil {
			return reportError(err)
		}

		if asmOnly {
			return writeAssembly(outFile, asm.String())
		}
		if err := assembleAndLink(outFile, asm.String(), cfg.LinkerArgs); err != nil {
			return reportError(err)
		}
		return nil
	}

	if err := app.Run(os.Args[1:]); err != nil {
		os.Exit(1)
	}
}

func groupEntries(count int, get func(int) (name, usage string, enabled bool)) []cli.GroupEntry {
	entries := make([]cli.GroupEntry, count)
	for i := range entries {
		name, usage, enabled := get(i)
		entries[i] = cli.GroupEntry{Name: name, Usage: usage, Default: enabled}
	}
	return entries
}

// applyGroupFlags replays -Wname / -Wno-name style settings in command
// line order, so later flags win.
func applyGroupFlags(seen []string, apply func(name string, enabled bool) bool) {
	for _, name := range seen {
		enabled := true
		if rest, ok := strings.CutPrefix(name, "no-"); ok {
			name, enabled = rest, false
		}
		apply(name, enabled)
	}
}

func reportError(err error) error {
	for _, line := range strings.Split(err.Error(), "\n") {
		fmt.Fprintf(os.Stderr, "vslc: \033[31merror:\033[0m %s\n", line)
	}
	return err
}

func writeAssembly(outFile, asm string) error {
	if outFile == "a.out" || outFile == "-" {
		_, err := fmt.Print(asm)
		return err
	}
	return os.WriteFile(outFile, []byte(asm), 0644)
}

func assembleAndLink(outFile, asm string, linkerArgs []string) error {
	asmFile, err := os.CreateTemp("", "vslc-*.s")
	if err != nil {
		return fmt.Errorf("failed to create temp file for assembly: %w", err)
	}
	defer os.Remove(asmFile.Name())
	if _, err := asmFile.WriteString(asm); err != nil {
		return fmt.Errorf("failed to write assembly: %w", err)
	}
	asmFile.Close()

	ccArgs := []string{"-no-pie", "-o", outFile, asmFile.Name()}
	ccArgs = append(ccArgs, linkerArgs...)
	cmd := exec.Command("cc", ccArgs...)
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("cc command failed: %w\nOutput:\n%s", err, string(output))
	}
	return nil
}

func readAndTokenizeFiles(paths []string) ([]util.SourceFileRecord, []token.Token) {
	var records []util.SourceFileRecord
	var allTokens []token.Token
	for i, path := range paths {
		content, err := os.ReadFile(path)
		if err != nil {
			util.Error(token.Token{FileIndex: -1}, "could not read file '%s': %v", path, err)
		}
		runeContent := []rune(string(content))
		records = append(records, util.SourceFileRecord{Name: path, Content: runeContent})
		allTokens = append(allTokens, lexer.Tokenize(runeContent, i)...)
	}
	return records, allTokens
}
