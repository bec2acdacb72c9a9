// Package cli is a small flag framework supporting long and short
// flags, plus prefixed flag groups of the -Wname / -Wno-name shape.
package cli

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/term"
)

type Value interface {
	String() string
	Set(string) error
}

type stringValue struct{ p *string }

func (v *stringValue) Set(s string) error { *v.p = s; return nil }
func (v *stringValue) String() string     { return *v.p }

type boolValue struct{ p *bool }

func (v *boolValue) Set(s string) error {
	if s == "" {
		*v.p = true
		return nil
	}
	val, err := strconv.ParseBool(s)
	if err != nil {
		return fmt.Errorf("invalid boolean value '%s': %w", s, err)
	}
	*v.p = val
	return nil
}
func (v *boolValue) String() string { return strconv.FormatBool(*v.p) }

type listValue struct{ p *[]string }

func (v *listValue) Set(s string) error { *v.p = append(*v.p, s); return nil }
func (v *listValue) String() string     { return strings.Join(*v.p, ", ") }

type Flag struct {
	Name         string
	Shorthand    string
	Usage        string
	Value        Value
	DefValue     string
	ExpectedType string
}

// FlagGroup is a family of toggles sharing a single-letter prefix, in
// the compiler tradition: -Wname enables, -Wno-name disables, and the
// group is documented as a unit.
type FlagGroup struct {
	Prefix      string
	Description string
	Entries     []GroupEntry
}

type GroupEntry struct {
	Name    string
	Usage   string
	Default bool
}

type FlagSet struct {
	name       string
	flags      map[string]*Flag
	shorthands map[string]*Flag
	groups     []*FlagGroup
	groupSeen  map[string][]string
	args       []string
}

func NewFlagSet(name string) *FlagSet {
	return &FlagSet{
		name:       name,
		flags:      make(map[string]*Flag),
		shorthands: make(map[string]*Flag),
		groupSeen:  make(map[string][]string),
	}
}

func (f *FlagSet) Args() []string { return f.args }

func (f *FlagSet) String(p *string, name, shorthand, value, usage, expectedType string) {
	*p = value
	f.Var(&stringValue{p}, name, shorthand, usage, value, expectedType)
}

func (f *FlagSet) Bool(p *bool, name, shorthand string, value bool, usage string) {
	*p = value
	f.Var(&boolValue{p}, name, shorthand, usage, strconv.FormatBool(value), "")
}

func (f *FlagSet) List(p *[]string, name, shorthand, usage, expectedType string) {
	f.Var(&listValue{p}, name, shorthand, usage, "", expectedType)
}

func (f *FlagSet) Var(value Value, name, shorthand, usage, defValue, expectedType string) {
	if name == "" {
		panic("flag name cannot be empty")
	}
	if _, ok := f.flags[name]; ok {
		panic(fmt.Sprintf("flag redefined: %s", name))
	}
	flag := &Flag{Name: name, Shorthand: shorthand, Usage: usage, Value: value, DefValue: defValue, ExpectedType: expectedType}
	f.flags[name] = flag
	if shorthand != "" {
		if _, ok := f.shorthands[shorthand]; ok {
			panic(fmt.Sprintf("shorthand flag redefined: %s", shorthand))
		}
		f.shorthands[shorthand] = flag
	}
}

// AddFlagGroup registers a prefixed toggle family. Group settings are
// collected during Parse and replayed through Group afterwards.
func (f *FlagSet) AddFlagGroup(prefix, description string, entries []GroupEntry) {
	f.groups = append(f.groups, &FlagGroup{Prefix: prefix, Description: description, Entries: entries})
}

// Group returns the raw -X arguments seen for a group prefix, in order:
// "name", "no-name" or "all".
func (f *FlagSet) Group(prefix string) []string { return f.groupSeen[prefix] }

func (f *FlagSet) Parse(arguments []string) error {
	f.args = nil
	for i := 0; i < len(arguments); i++ {
		arg := arguments[i]
		if len(arg) < 2 || arg[0] != '-' {
			f.args = append(f.args, arg)
			continue
		}
		if arg == "--" {
			f.args = append(f.args, arguments[i+1:]...)
			break
		}
		var err error
		if strings.HasPrefix(arg, "--") {
			err = f.parseLongFlag(arg, arguments, &i)
		} else {
			err = f.parseShortFlag(arg, arguments, &i)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (f *FlagSet) parseLongFlag(arg string, arguments []string, i *int) error {
	name, value, hasValue := strings.Cut(arg[2:], "=")
	flag, ok := f.flags[name]
	if !ok {
		return fmt.Errorf("unknown flag: --%s", name)
	}
	if hasValue {
		return flag.Value.Set(value)
	}
	if _, isBool := flag.Value.(*boolValue); isBool {
		return flag.Value.Set("")
	}
	if *i+1 >= len(arguments) {
		return fmt.Errorf("flag needs an argument: --%s", name)
	}
	*i++
	return flag.Value.Set(arguments[*i])
}

func (f *FlagSet) parseShortFlag(arg string, arguments []string, i *int) error {
	shorthand := arg[1:2]
	for _, group := range f.groups {
		if shorthand == group.Prefix && len(arg) > 2 {
			return f.setGroupFlag(group, arg[2:])
		}
	}

	flag, ok := f.shorthands[shorthand]
	if !ok {
		return fmt.Errorf("unknown flag: -%s", shorthand)
	}
	if _, isBool := flag.Value.(*boolValue); isBool {
		return flag.Value.Set("")
	}
	if value := arg[2:]; value != "" {
		return flag.Value.Set(value)
	}
	if *i+1 >= len(arguments) {
		return fmt.Errorf("flag needs an argument: -%s", shorthand)
	}
	*i++
	return flag.Value.Set(arguments[*i])
}

func (f *FlagSet) setGroupFlag(group *FlagGroup, name string) error {
	bare := strings.TrimPrefix(name, "no-")
	if bare != "all" {
		known := false
		for _, entry := range group.Entries {
			if entry.Name == bare {
				known = true
				break
			}
		}
		if !known {
			return fmt.Errorf("unknown flag: -%s%s", group.Prefix, name)
		}
	}
	f.groupSeen[group.Prefix] = append(f.groupSeen[group.Prefix], name)
	return nil
}

type App struct {
	Name        string
	Synopsis    string
	Description string
	FlagSet     *FlagSet
	Action      func(args []string) error
}

func NewApp(name string) *App {
	return &App{Name: name, FlagSet: NewFlagSet(name)}
}

func (a *App) Run(arguments []string) error {
	help := false
	a.FlagSet.Bool(&help, "help", "h", false, "Display this information")

	if err := a.FlagSet.Parse(arguments); err != nil {
		fmt.Fprintln(os.Stderr, err)
		fmt.Fprintf(os.Stderr, "Run '%s --help' for available options.\n", a.Name)
		return err
	}
	if help {
		a.printHelp(os.Stdout)
		return nil
	}
	if a.Action != nil {
		return a.Action(a.FlagSet.Args())
	}
	return nil
}

func (a *App) printHelp(w *os.File) {
	width := terminalWidth()

	fmt.Fprintf(w, "Usage: %s %s\n", a.Name, a.Synopsis)
	if a.Description != "" {
		fmt.Fprintf(w, "\n%s\n", a.Description)
	}

	flags := make([]*Flag, 0, len(a.FlagSet.flags))
	for _, flag := range a.FlagSet.flags {
		flags = append(flags, flag)
	}
	sort.Slice(flags, func(i, j int) bool { return flags[i].Name < flags[j].Name })

	leftWidth := 0
	for _, flag := range flags {
		if l := len(flagColumn(flag)); l > leftWidth {
			leftWidth = l
		}
	}
	for _, group := range a.FlagSet.groups {
		for _, entry := range group.Entries {
			if l := len(group.Prefix + entry.Name); l+1 > leftWidth {
				leftWidth = l + 1
			}
		}
	}

	fmt.Fprintf(w, "\nOptions\n")
	for _, flag := range flags {
		printEntry(w, flagColumn(flag), flag.Usage, leftWidth, width)
	}

	for _, group := range a.FlagSet.groups {
		fmt.Fprintf(w, "\n%s (-%s<name> to enable, -%sno-<name> to disable, 'all' for every one)\n",
			group.Description, group.Prefix, group.Prefix)
		for _, entry := range group.Entries {
			mark := " "
			if entry.Default {
				mark = "*"
			}
			printEntry(w, mark+group.Prefix+entry.Name, entry.Usage, leftWidth, width)
		}
	}
}

func flagColumn(flag *Flag) string {
	var sb strings.Builder
	if flag.Shorthand != "" {
		fmt.Fprintf(&sb, "-%s, ", flag.Shorthand)
	}
	fmt.Fprintf(&sb, "--%s", flag.Name)
	if flag.ExpectedType != "" {
		fmt.Fprintf(&sb, " <%s>", flag.ExpectedType)
	}
	return sb.String()
}

func printEntry(w *os.File, left, usage string, leftWidth, termWidth int) {
	lines := wrapText(usage, max(termWidth-leftWidth-4, 10))
	if len(lines) == 0 {
		lines = []string{""}
	}
	fmt.Fprintf(w, "  %-*s %s\n", leftWidth, left, lines[0])
	for _, line := range lines[1:] {
		fmt.Fprintf(w, "  %-*s %s\n", leftWidth, "", line)
	}
}

func terminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width < 20 {
		return 80
	}
	return width
}

func wrapText(text string, maxWidth int) []string {
	words := strings.Fields(text)
	var lines []string
	var current strings.Builder
	for _, word := range words {
		if current.Len() > 0 && current.Len()+1+len(word) > maxWidth {
			lines = append(lines, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteString(" ")
		}
		current.WriteString(word)
	}
	if current.Len() > 0 {
		lines = append(lines, current.String())
	}
	return lines
}
