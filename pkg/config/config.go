package config

import (
	"fmt"
	"os"

	"modernc.org/libqbe"
)

type Feature int

const (
	FeatFold Feature = iota
	FeatDCE
	FeatGraphviz
	FeatCount
)

type Warning int

const (
	WarnUnreachableCode Warning = iota
	WarnFoldDivZero
	WarnExtra
	WarnCount
)

type Info struct {
	Name        string
	Enabled     bool
	Description string
}

type Config struct {
	Features   map[Feature]Info
	Warnings   map[Warning]Info
	FeatureMap map[string]Feature
	WarningMap map[string]Warning

	TargetName     string
	GOOS           string
	GOARCH         string
	WordSize       int
	StackAlignment int

	// Assembly properties that differ between System V targets
	RodataSection string
	BssSection    string

	LinkerArgs []string
}

func NewConfig() *Config {
	cfg := &Config{
		Features:   make(map[Feature]Info),
		Warnings:   make(map[Warning]Info),
		FeatureMap: make(map[string]Feature),
		WarningMap: make(map[string]Warning),
	}

	features := map[Feature]Info{
		FeatFold:     {"fold", true, "Perform compile-time constant folding."},
		FeatDCE:      {"dce", true, "Remove statements that can never execute."},
		FeatGraphviz: {"graphviz", false, "Dump the syntax tree in GraphViz dot format."},
	}

	warnings := map[Warning]Info{
		WarnUnreachableCode: {"unreachable-code", true, "Warn about code that will never be executed."},
		WarnFoldDivZero:     {"fold-div-zero", true, "Warn when constant folding meets a division by zero."},
		WarnExtra:           {"extra", true, "Enable extra miscellaneous warnings."},
	}

	cfg.Features, cfg.Warnings = features, warnings
	for ft, info := range features {
		cfg.FeatureMap[info.Name] = ft
	}
	for wt, info := range warnings {
		cfg.WarningMap[info.Name] = wt
	}

	return cfg
}

// SetTarget configures the compiler for a specific assembly target. Only
// 64-bit System V x86 targets are supported by the code generator.
func (c *Config) SetTarget(goos, goarch, target string) error {
	if target == "" {
		target = libqbe.DefaultTarget(goos, goarch)
		fmt.Fprintf(os.Stderr, "vslc: info: no target specified, defaulting to host target '%s'\n", target)
	}

	c.TargetName = target
	c.GOOS, c.GOARCH = goos, goarch

	switch target {
	case "amd64_sysv":
		c.WordSize, c.StackAlignment = 8, 16
		c.RodataSection, c.BssSection = ".rodata", ".bss"
	case "amd64_apple":
		c.WordSize, c.StackAlignment = 8, 16
		c.RodataSection, c.BssSection = "__TEXT,__cstring", "__DATA,__bss"
	default:
		return fmt.Errorf("unsupported target '%s': the code generator emits x86-64 System V assembly only", target)
	}
	return nil
}

func (c *Config) SetFeature(ft Feature, enabled bool) {
	if info, ok := c.Features[ft]; ok {
		info.Enabled = enabled
		c.Features[ft] = info
	}
}

func (c *Config) IsFeatureEnabled(ft Feature) bool { return c.Features[ft].Enabled }

func (c *Config) SetWarning(wt Warning, enabled bool) {
	if info, ok := c.Warnings[wt]; ok {
		info.Enabled = enabled
		c.Warnings[wt] = info
	}
}

func (c *Config) IsWarningEnabled(wt Warning) bool { return c.Warnings[wt].Enabled }

// SetAllWarnings flips every warning at once, for -Wall / -Wno-all.
func (c *Config) SetAllWarnings(enabled bool) {
	for i := Warning(0); i < WarnCount; i++ {
		c.SetWarning(i, enabled)
	}
}
