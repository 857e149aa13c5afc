package cli

import (
	"flag"
	"fmt"
	"strings"
)

// ChurchArg is one -church flag: id=name:file[,file...]
type ChurchArg struct {
	ID    string
	Name  string
	Files []string
}

// ParseChurchArg parses "id=name:file[,file...]". The name may be omitted
// ("id:file"), in which case the id doubles as the name.
func ParseChurchArg(s string) (ChurchArg, error) {
	label, files, ok := strings.Cut(s, ":")
	if !ok || strings.TrimSpace(files) == "" {
		return ChurchArg{}, fmt.Errorf("church %q: expected id=name:file[,file...]", s)
	}

	id, name, hasName := strings.Cut(label, "=")
	id = strings.TrimSpace(id)
	name = strings.TrimSpace(name)
	if id == "" {
		return ChurchArg{}, fmt.Errorf("church %q: id is required", s)
	}
	if !hasName || name == "" {
		name = id
	}

	arg := ChurchArg{ID: id, Name: name}
	for _, f := range strings.Split(files, ",") {
		if f = strings.TrimSpace(f); f != "" {
			arg.Files = append(arg.Files, f)
		}
	}
	return arg, nil
}

// stringList collects a repeatable flag
type stringList []string

func (l *stringList) String() string { return strings.Join(*l, ",") }

func (l *stringList) Set(v string) error {
	*l = append(*l, v)
	return nil
}

// churchList collects repeatable -church flags
type churchList []ChurchArg

func (l *churchList) String() string {
	ids := make([]string, 0, len(*l))
	for _, c := range *l {
		ids = append(ids, c.ID)
	}
	return strings.Join(ids, ",")
}

func (l *churchList) Set(v string) error {
	arg, err := ParseChurchArg(v)
	if err != nil {
		return err
	}
	*l = append(*l, arg)
	return nil
}

// ReconcileFlags are the flags of the reconcile command
type ReconcileFlags struct {
	ConfigFile          string
	Statements          []string
	Churches            []ChurchArg
	ExportPath          string
	Delimiter           string
	SimilarityThreshold float64
	DayTolerance        int
	NoStore             bool
	Verbose             bool
}

// ParseReconcileFlags parses reconcile flags from args (os.Args[1:])
func ParseReconcileFlags(args []string) (ReconcileFlags, error) {
	fs := flag.NewFlagSet("reconcile", flag.ContinueOnError)

	var (
		flags      ReconcileFlags
		statements stringList
		churches   churchList
	)
	fs.StringVar(&flags.ConfigFile, "config", "", "Configuration file path")
	fs.Var(&statements, "statement", "Bank statement file (repeatable)")
	fs.Var(&churches, "church", "Church and its contributor lists: id=name:file[,file] (repeatable)")
	fs.StringVar(&flags.ExportPath, "export", "", "Write the CSV ledger to this path (- for stdout)")
	fs.StringVar(&flags.Delimiter, "delimiter", ";", "CSV export delimiter")
	fs.Float64Var(&flags.SimilarityThreshold, "threshold", 0, "Name similarity threshold 0-100 (0 = config)")
	fs.IntVar(&flags.DayTolerance, "days", -1, "Date tolerance in days (-1 = config)")
	fs.BoolVar(&flags.NoStore, "no-store", false, "Do not read or write learned associations and run history")
	fs.BoolVar(&flags.Verbose, "verbose", false, "Verbose output")

	if err := fs.Parse(args); err != nil {
		return flags, err
	}
	flags.Statements = statements
	flags.Churches = churches

	if len(flags.Statements) == 0 {
		return flags, fmt.Errorf("at least one -statement is required")
	}
	if len([]rune(flags.Delimiter)) != 1 {
		return flags, fmt.Errorf("-delimiter must be a single character, got %q", flags.Delimiter)
	}
	return flags, nil
}

// ServeFlags holds the CLI flags for the serve command.
type ServeFlags struct {
	ConfigFile string
	Port       int
	Verbose    bool
}

// ParseServeFlags parses command line flags for the serve command.
func ParseServeFlags() *ServeFlags {
	flags := &ServeFlags{}
	flag.StringVar(&flags.ConfigFile, "config", "", "Configuration file path")
	flag.IntVar(&flags.Port, "port", 0, "Port to listen on (0 = config)")
	flag.BoolVar(&flags.Verbose, "verbose", false, "Verbose output")
	flag.Parse()
	return flags
}
