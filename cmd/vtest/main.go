// vtest is the golden-file test runner for VSL programs: it compiles
// every test program, runs it against a fixed set of argument lists and
// compares stdout and exit status with a recorded .json golden file.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/go-cmp/cmp"
)

type Execution struct {
	Stdout   string `json:"stdout"`
	ExitCode int    `json:"exitCode"`
	TimedOut bool   `json:"timed_out,omitempty"`
}

type TestRun struct {
	Name   string    `json:"name"`
	Args   []string  `json:"args,omitempty"`
	Result Execution `json:"result"`
}

type Golden struct {
	Runs []TestRun `json:"runs"`
}

type FileResult struct {
	File    string
	Status  string // PASS, FAIL, SKIP, ERROR
	Message string
	Diff    string
}

var (
	compiler       = flag.String("compiler", "./vslc", "Path to the compiler under test.")
	compilerArgs   = flag.String("compiler-args", "", "Extra compiler arguments (space-separated).")
	testFiles      = flag.String("test-files", "tests/*.vsl", "Glob pattern(s) for test programs.")
	generateGolden = flag.String("generate-golden", "", "Record a golden .json file for one source file and exit.")
	timeout        = flag.Duration("timeout", 5*time.Second, "Timeout for each command execution.")
	jobs           = flag.Int("j", 4, "Number of parallel test jobs.")
)

const (
	cRed    = "\x1b[91m"
	cYellow = "\x1b[93m"
	cGreen  = "\x1b[92m"
	cCyan   = "\x1b[96m"
	cBold   = "\x1b[1m"
	cNone   = "\x1b[0m"
)

// Every program is exercised with the same argument lists; runs whose
// argument count does not match the program's first function simply
// record the argument-count failure.
var argumentSets = map[string][]string{
	"no_args":   {},
	"one_pos":   {"5"},
	"one_neg":   {"-5"},
	"one_zero":  {"0"},
	"two":       {"3", "4"},
	"two_mixed": {"-7", "21"},
}

func main() {
	flag.Parse()
	log.SetFlags(0)

	tempDir, err := os.MkdirTemp("", "vtest-*")
	if err != nil {
		log.Fatalf("%s[ERROR]%s Failed to create temp directory: %v", cRed, cNone, err)
	}
	defer os.RemoveAll(tempDir)

	if *generateGolden != "" {
		if err := writeGolden(*generateGolden, tempDir); err != nil {
			log.Fatalf("%s[ERROR]%s %v", cRed, cNone, err)
		}
		return
	}

	files, err := expandGlobPatterns(*testFiles)
	if err != nil {
		log.Fatalf("%s[ERROR]%s Invalid glob pattern(s): %v", cRed, cNone, err)
	}
	if len(files) == 0 {
		log.Println("No test files found matching the pattern(s).")
		return
	}

	tasks := make(chan string, len(files))
	resultsChan := make(chan *FileResult, len(files))
	var wg sync.WaitGroup
	for i := 0; i < *jobs; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for file := range tasks {
				resultsChan <- testFile(file, tempDir)
			}
		}()
	}
	for _, file := range files {
		tasks <- file
	}
	close(tasks)
	wg.Wait()
	close(resultsChan)

	var results []*FileResult
	for result := range resultsChan {
		results = append(results, result)
	}
	sort.Slice(results, func(i, j int) bool { return results[i].File < results[j].File })

	if printSummary(results) {
		os.Exit(1)
	}
}

func goldenPath(sourceFile string) string {
	return filepath.Join(filepath.Dir(sourceFile), "."+filepath.Base(sourceFile)+".json")
}

// hashFile names compiled binaries deterministically, so parallel jobs
// never collide in the shared temp directory.
func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := xxhash.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return fmt.Sprintf("%x", h.Sum64()), nil
}

func writeGolden(sourceFile, tempDir string) error {
	golden, err := compileAndRun(sourceFile, tempDir)
	if err != nil {
		return fmt.Errorf("could not record %s: %w", sourceFile, err)
	}
	jsonData, err := json.MarshalIndent(golden, "", "  ")
	if err != nil {
		return err
	}
	path := goldenPath(sourceFile)
	if err := os.WriteFile(path, jsonData, 0644); err != nil {
		return err
	}
	log.Printf("%s[OK]%s Golden file written to %s", cGreen, cNone, path)
	return nil
}

func testFile(file, tempDir string) *FileResult {
	goldenData, err := os.ReadFile(goldenPath(file))
	if err != nil {
		return &FileResult{File: file, Status: "SKIP", Message: "No golden file; record one with -generate-golden"}
	}
	var golden Golden
	if err := json.Unmarshal(goldenData, &golden); err != nil {
		return &FileResult{File: file, Status: "ERROR", Message: fmt.Sprintf("Bad golden file: %v", err)}
	}

	actual, err := compileAndRun(file, tempDir)
	if err != nil {
		return &FileResult{File: file, Status: "FAIL", Message: fmt.Sprintf("Compilation failed: %v", err)}
	}

	actualRuns := make(map[string]TestRun, len(actual.Runs))
	for _, run := range actual.Runs {
		actualRuns[run.Name] = run
	}

	var diffs strings.Builder
	for _, want := range golden.Runs {
		got, ok := actualRuns[want.Name]
		if !ok {
			fmt.Fprintf(&diffs, "Run '%s' missing from results.\n", want.Name)
			continue
		}
		if want.Result.ExitCode != got.Result.ExitCode {
			fmt.Fprintf(&diffs, "Run '%s' exit code: want %d, got %d\n", want.Name, want.Result.ExitCode, got.Result.ExitCode)
		}
		if want.Result.Stdout != got.Result.Stdout {
			fmt.Fprintf(&diffs, "Run '%s' stdout (-want +got):\n%s", want.Name, cmp.Diff(want.Result.Stdout, got.Result.Stdout))
		}
	}

	if diffs.Len() > 0 {
		return &FileResult{File: file, Status: "FAIL", Message: "Output or exit code mismatch", Diff: diffs.String()}
	}
	return &FileResult{File: file, Status: "PASS", Message: fmt.Sprintf("%d run(s) matched", len(golden.Runs))}
}

func compileAndRun(sourceFile, tempDir string) (*Golden, error) {
	fileHash, err := hashFile(sourceFile)
	if err != nil {
		return nil, err
	}
	binaryPath := filepath.Join(tempDir, fileHash)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	ccArgs := append([]string{"-o", binaryPath}, strings.Fields(*compilerArgs)...)
	ccArgs = append(ccArgs, sourceFile)
	compile := executeCommand(ctx, *compiler, ccArgs...)
	if compile.ExitCode != 0 || compile.TimedOut {
		return nil, fmt.Errorf("compiler exited with %d:\n%s", compile.ExitCode, compile.Stdout)
	}

	names := make([]string, 0, len(argumentSets))
	for name := range argumentSets {
		names = append(names, name)
	}
	sort.Strings(names)

	golden := &Golden{}
	for _, name := range names {
		runCtx, runCancel := context.WithTimeout(context.Background(), *timeout)
		result := executeCommand(runCtx, binaryPath, argumentSets[name]...)
		runCancel()
		golden.Runs = append(golden.Runs, TestRun{Name: name, Args: argumentSets[name], Result: result})
	}
	return golden, nil
}

func executeCommand(ctx context.Context, command string, args ...string) Execution {
	cmd := exec.CommandContext(ctx, command, args...)
	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	err := cmd.Run()
	result := Execution{Stdout: output.String()}
	switch {
	case ctx.Err() == context.DeadlineExceeded:
		result.TimedOut = true
		result.ExitCode = -1
	case err != nil:
		if exitErr, ok := err.(*exec.ExitError); ok {
			result.ExitCode = exitErr.ExitCode()
		} else {
			result.ExitCode = -2
		}
	}
	return result
}

func printSummary(results []*FileResult) (failed bool) {
	var passed, failedCount, skipped, errored int
	for _, result := range results {
		switch result.Status {
		case "PASS":
			passed++
			fmt.Printf("[%sPASS%s] %s%s%s: %s\n", cGreen, cNone, cCyan, result.File, cNone, result.Message)
		case "FAIL":
			failedCount++
			fmt.Printf("[%sFAIL%s] %s%s%s: %s\n", cRed, cNone, cCyan, result.File, cNone, result.Message)
			for _, line := range strings.Split(strings.TrimRight(result.Diff, "\n"), "\n") {
				fmt.Printf("    %s\n", line)
			}
		case "SKIP":
			skipped++
			fmt.Printf("[%sSKIP%s] %s%s%s: %s\n", cYellow, cNone, cCyan, result.File, cNone, result.Message)
		case "ERROR":
			errored++
			fmt.Printf("[%sERROR%s] %s%s%s: %s\n", cRed, cNone, cCyan, result.File, cNone, result.Message)
		}
	}
	fmt.Printf("%sSummary:%s %s%d passed%s, %s%d failed%s, %s%d skipped%s, %s%d errored%s, %d total\n",
		cBold, cNone, cGreen, passed, cNone, cRed, failedCount, cNone, cYellow, skipped, cNone, cRed, errored, cNone, len(results))
	return failedCount > 0 || errored > 0
}

func expandGlobPatterns(patterns string) ([]string, error) {
	var files []string
	for _, pattern := range strings.Fields(patterns) {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("bad pattern %s: %w", pattern, err)
		}
		files = append(files, matches...)
	}
	return files, nil
}
