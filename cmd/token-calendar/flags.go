package main

import (
	"flag"
	"io"
	"strconv"
	"strings"

	"github.com/0xmhha/token-calendar/pkg/config"
)

// optionalInt is an int flag that remembers whether it was given.
type optionalInt struct {
	value *int
}

func (o *optionalInt) String() string {
	if o == nil || o.value == nil {
		return ""
	}
	return strconv.Itoa(*o.value)
}

func (o *optionalInt) Set(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return err
	}
	o.value = &n
	return nil
}

// stringList collects a repeatable, comma-separated flag.
type stringList []string

func (l *stringList) String() string {
	return strings.Join(*l, ",")
}

func (l *stringList) Set(s string) error {
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			*l = append(*l, part)
		}
	}
	return nil
}

// commonFlags are accepted by every scanning command.
type commonFlags struct {
	configPath  string
	searchPaths stringList
	utc         bool
	tzOffset    optionalInt
	dbPath      string
	logLevel    string
}

func addCommonFlags(fs *flag.FlagSet) *commonFlags {
	c := &commonFlags{}
	fs.StringVar(&c.configPath, "config", "", "path to configuration file")
	fs.Var(&c.searchPaths, "search-path", "root to search for session logs (repeatable, comma-separated)")
	fs.BoolVar(&c.utc, "utc", false, "bucket days in UTC")
	fs.Var(&c.tzOffset, "tz-offset", "bucket days at a fixed UTC offset in hours (-12..14)")
	fs.StringVar(&c.dbPath, "db", "", "path to the snapshot database")
	fs.StringVar(&c.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	return c
}

func (c *commonFlags) overrides() config.Overrides {
	return config.Overrides{
		SearchPaths: c.searchPaths,
		OffsetHours: c.tzOffset.value,
		UTC:         c.utc,
		DBPath:      c.dbPath,
		LogLevel:    c.logLevel,
	}
}

// periodFlags select the period and view to show.
type periodFlags struct {
	year  optionalInt
	month optionalInt
	view  string
}

func addPeriodFlags(fs *flag.FlagSet) *periodFlags {
	p := &periodFlags{}
	fs.Var(&p.year, "year", "year to show (default: current)")
	fs.Var(&p.month, "month", "month to show, 1-12 (default: current)")
	fs.StringVar(&p.view, "view", "", "view to show (month, year, all)")
	return p
}

func (p *periodFlags) apply(o *config.Overrides) {
	o.Year = p.year.value
	o.Month = p.month.value
	o.View = p.view
}

// newFlagSet returns a flag set that reports errors instead of exiting.
func newFlagSet(name string, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	return fs
}
