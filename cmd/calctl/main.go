package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/alecthomas/kong"
	"github.com/arnavshah/staff-calendar-api-go/pkg/app"
	"github.com/arnavshah/staff-calendar-api-go/pkg/config"
)

// Context is shared by every command. The database is opened on first use
// so commands such as keygen work without one.
type Context struct {
	Config config.Config
	app    *app.App
}

// App opens the calendar service components
func (c *Context) App() (*app.App, error) {
	if c.app != nil {
		return c.app, nil
	}
	a, err := app.New(c.Config)
	if err != nil {
		return nil, err
	}
	c.app = a
	return a, nil
}

var CLI struct {
	Version  kong.VersionFlag
	Database string `help:"SQLite file; overrides DATA_PATH." type:"path" env:"DATA_PATH"`
	Debug    bool   `help:"Log to stderr at debug level."`

	Seed         SeedCmd         `cmd:"" help:"Load states, shifts, sites and mappings from a seed file."`
	Month        MonthCmd        `cmd:"" help:"Print the resolved calendar of a month."`
	Export       ExportCmd       `cmd:"" help:"Write a month calendar as an xlsx workbook."`
	Keygen       KeygenCmd       `cmd:"" help:"Issue an API key for a client name."`
	CheckOverlap CheckOverlapCmd `cmd:"" name:"check-overlap" help:"Check a date range against a person's active assignments."`
}

func main() {
	now := time.Now()
	ctx := kong.Parse(&CLI,
		kong.Name("calctl"),
		kong.Description("Staff calendar operator tool"),
		kong.UsageOnError(),
		kong.Vars{
			"version": "v1.0.0",
			"year":    strconv.Itoa(now.Year()),
			"month":   strconv.Itoa(int(now.Month())),
		},
	)

	cfg := config.Load()
	if CLI.Database != "" {
		cfg.DataPath = CLI.Database
	}
	if CLI.Debug {
		cfg.LogDebug = true
	}

	if err := ctx.Run(&Context{Config: cfg}); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
