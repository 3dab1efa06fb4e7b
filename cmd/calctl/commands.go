package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/arnavshah/staff-calendar-api-go/pkg/app"
	"github.com/arnavshah/staff-calendar-api-go/pkg/auth"
	"github.com/arnavshah/staff-calendar-api-go/pkg/export"
	"github.com/arnavshah/staff-calendar-api-go/pkg/models"
)

type SeedCmd struct {
	File string `help:"Seed YAML file; the built-in sample when empty." type:"existingfile"`
}

func (c *SeedCmd) Run(ctx *Context) error {
	a, err := ctx.App()
	if err != nil {
		return err
	}
	rep, err := a.Seed(context.Background(), c.File)
	if err != nil {
		return err
	}

	fmt.Printf("Created %d states, %d shifts (%d blocks), %d sites, %d record types, %d mappings, %d people, %d assignments\n",
		rep.States, rep.Shifts, rep.Blocks, rep.Sites, rep.Types, rep.Mappings, rep.People, rep.Assignments)
	for _, s := range rep.Skipped {
		fmt.Printf("  skipped: %s\n", s)
	}
	return nil
}

type MonthFlags struct {
	Year   int  `help:"Calendar year." default:"${year}"`
	Month  int  `help:"Calendar month (1-12)." default:"${month}"`
	Person uint `help:"Only this person ID."`
}

func (f MonthFlags) resolve(a *app.App) (*models.MonthCalendar, error) {
	if f.Month < 1 || f.Month > 12 {
		return nil, fmt.Errorf("month must be between 1 and 12, got %d", f.Month)
	}
	ctx := context.Background()

	var people []models.Person
	if f.Person != 0 {
		p, err := a.Store.Person(ctx, f.Person)
		if err != nil {
			return nil, err
		}
		people = []models.Person{p}
	} else {
		var err error
		if people, err = a.Store.People(ctx, true); err != nil {
			return nil, err
		}
	}
	return a.Scheduler.ResolveMonth(ctx, people, f.Year, time.Month(f.Month))
}

type MonthCmd struct {
	MonthFlags `embed:""`
}

func (c *MonthCmd) Run(ctx *Context) error {
	a, err := ctx.App()
	if err != nil {
		return err
	}
	cal, err := c.resolve(a)
	if err != nil {
		return err
	}
	if len(cal.People) == 0 {
		fmt.Println("No active people")
		return nil
	}
	fmt.Print(renderMonth(cal))
	return nil
}

type ExportCmd struct {
	MonthFlags `embed:""`
	Out string `help:"Output file; calendario-YYYY-MM.xlsx when empty." type:"path"`
}

func (c *ExportCmd) Run(ctx *Context) error {
	a, err := ctx.App()
	if err != nil {
		return err
	}
	cal, err := c.resolve(a)
	if err != nil {
		return err
	}

	out := c.Out
	if out == "" {
		out = fmt.Sprintf("calendario-%s.xlsx", export.SheetName(cal.Year, int(cal.Month)))
	}
	f, err := export.Month(cal)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := f.SaveAs(out); err != nil {
		return fmt.Errorf("failed to save %s: %w", out, err)
	}
	fmt.Printf("Wrote %s (%d people)\n", out, len(cal.People))
	return nil
}

type KeygenCmd struct {
	Name string `arg:"" help:"Client name the key is issued for."`
}

func (c *KeygenCmd) Run(ctx *Context) error {
	if ctx.Config.APIMasterSecret == "" {
		return errors.New("API_MASTER_SECRET is not set")
	}
	key := auth.New(ctx.Config).GenerateHMACKey(c.Name)
	fmt.Printf("Generated Key for %s:\n%s\n", c.Name, key)
	return nil
}

type CheckOverlapCmd struct {
	Person  uint   `help:"Person ID." required:""`
	Start   string `help:"Start date (YYYY-MM-DD)." required:""`
	End     string `help:"End date (YYYY-MM-DD); open-ended when empty."`
	Exclude uint   `help:"Assignment ID to ignore, e.g. the one being edited."`
}

func (c *CheckOverlapCmd) Run(ctx *Context) error {
	start, err := models.ParseDate(c.Start)
	if err != nil {
		return err
	}
	var end *time.Time
	if c.End != "" {
		e, err := models.ParseDate(c.End)
		if err != nil {
			return err
		}
		if e.Before(start) {
			return models.ErrInvalidRange
		}
		end = &e
	}
	var exclude *uint
	if c.Exclude != 0 {
		exclude = &c.Exclude
	}

	a, err := ctx.App()
	if err != nil {
		return err
	}
	overlaps, err := a.Scheduler.CheckOverlap(context.Background(), c.Person, start, end, exclude)
	if err != nil {
		return err
	}
	if overlaps {
		fmt.Println("overlaps an active assignment")
		os.Exit(2)
	}
	fmt.Println("no overlap")
	return nil
}
