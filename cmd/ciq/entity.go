package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/fyrsmithlabs/contextiq/internal/api"
	"github.com/fyrsmithlabs/contextiq/internal/service"
	"github.com/fyrsmithlabs/contextiq/internal/usercontext"
)

type listOutput[T any] struct {
	Items []T `json:"items"`
	Count int `json:"count"`
}

// entity binds one context kind to the shared create, list, show, update
// and delete subcommands.
type entity[T any, F any] struct {
	name    string
	short   string
	primary string // flag that also takes the first positional argument

	flags  func(fs *pflag.FlagSet)
	fields func(fs *pflag.FlagSet) F
	filter func(fs *pflag.FlagSet)

	ownerOf func(T) string
	get     func(*service.Service, context.Context, string) (T, error)
	create  func(*service.Service, context.Context, T) error
	update  func(*service.Service, context.Context, T) error
	remove  func(*service.Service, context.Context, string) error
	list    func(*service.Service, context.Context, string, api.ListParams) ([]T, error)
	build   func(F, string) (T, error)
	apply   func(F, T, time.Time) error

	headers []string
	row     func(T) []string
}

func (e entity[T, F]) command(c *cli, extra ...*cobra.Command) *cobra.Command {
	cmd := &cobra.Command{
		Use:   e.name,
		Short: e.short,
	}
	cmd.AddCommand(e.createCmd(c), e.listCmd(c), e.showCmd(c), e.updateCmd(c), e.deleteCmd(c))
	cmd.AddCommand(extra...)
	return cmd
}

func (e entity[T, F]) createCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   fmt.Sprintf("create [%s]", e.primary),
		Short: "Create a " + e.name,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, err := c.requireOwner()
			if err != nil {
				return err
			}
			if err := primaryArg(cmd.Flags(), e.primary, args); err != nil {
				return err
			}
			item, err := e.build(e.fields(cmd.Flags()), owner)
			if err != nil {
				return err
			}
			if err := e.create(c.svc(), cmd.Context(), item); err != nil {
				return err
			}
			return c.print(cmd, e.single(item))
		},
	}
	e.flags(cmd.Flags())
	return cmd
}

func (e entity[T, F]) listCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List the owner's " + e.name + "s",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			owner, err := c.requireOwner()
			if err != nil {
				return err
			}
			items, err := e.list(c.svc(), cmd.Context(), owner, listParams(cmd.Flags()))
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(items))
			for _, it := range items {
				rows = append(rows, e.row(it))
			}
			return c.print(cmd, view{
				v:       listOutput[T]{Items: items, Count: len(items)},
				headers: e.headers,
				rows:    rows,
			})
		},
	}
	e.filter(cmd.Flags())
	return cmd
}

func (e entity[T, F]) showCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one " + e.name,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			item, err := e.load(cmd.Context(), c, args[0])
			if err != nil {
				return err
			}
			return c.print(cmd, e.single(item))
		},
	}
}

func (e entity[T, F]) updateCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change the fields given as flags",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			item, err := e.load(cmd.Context(), c, args[0])
			if err != nil {
				return err
			}
			if err := e.apply(e.fields(cmd.Flags()), item, time.Now().UTC()); err != nil {
				return err
			}
			if err := e.update(c.svc(), cmd.Context(), item); err != nil {
				return err
			}
			return c.print(cmd, e.single(item))
		},
	}
	e.flags(cmd.Flags())
	return cmd
}

func (e entity[T, F]) deleteCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete a " + e.name,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := e.load(cmd.Context(), c, args[0]); err != nil {
				return err
			}
			if err := e.remove(c.svc(), cmd.Context(), args[0]); err != nil {
				return err
			}
			return c.print(cmd, view{
				v:     map[string]string{"deleted": args[0]},
				lines: []string{fmt.Sprintf("deleted %s %s", e.name, args[0])},
			})
		},
	}
}

// action is a subcommand that runs fn on one item and prints the result.
func (e entity[T, F]) action(c *cli, use, short string, args cobra.PositionalArgs,
	fn func(cmd *cobra.Command, svc *service.Service, id string, args []string) (T, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  args,
		RunE: func(cmd *cobra.Command, a []string) error {
			if _, err := e.load(cmd.Context(), c, a[0]); err != nil {
				return err
			}
			item, err := fn(cmd, c.svc(), a[0], a[1:])
			if err != nil {
				return err
			}
			return c.print(cmd, e.single(item))
		},
	}
}

// load fetches id and hides items of other owners.
func (e entity[T, F]) load(ctx context.Context, c *cli, id string) (T, error) {
	var zero T
	owner, err := c.requireOwner()
	if err != nil {
		return zero, err
	}
	item, err := e.get(c.svc(), ctx, id)
	if err != nil {
		return zero, err
	}
	if e.ownerOf(item) != owner {
		return zero, fmt.Errorf("%s %s: %w", e.name, id, usercontext.ErrNotFound)
	}
	return item, nil
}

func (e entity[T, F]) single(item T) view {
	return view{v: item, headers: e.headers, rows: [][]string{e.row(item)}}
}

func (c *cli) svc() *service.Service { return c.registry.Service() }

// primaryArg copies a positional argument into the primary flag.
func primaryArg(fs *pflag.FlagSet, flag string, args []string) error {
	if len(args) == 0 {
		return nil
	}
	if fs.Changed(flag) {
		return fmt.Errorf("give the %s as an argument or with --%s, not both: %w", flag, flag, usercontext.ErrInvalidInput)
	}
	return fs.Set(flag, args[0])
}

// Flag readers return nil for flags the user did not set, which leaves the
// field untouched on update.

func strFlag(fs *pflag.FlagSet, name string) *string {
	if !fs.Changed(name) {
		return nil
	}
	v, _ := fs.GetString(name)
	return &v
}

func intFlag(fs *pflag.FlagSet, name string) *int {
	if !fs.Changed(name) {
		return nil
	}
	v, _ := fs.GetInt(name)
	return &v
}

func floatFlag(fs *pflag.FlagSet, name string) *float64 {
	if !fs.Changed(name) {
		return nil
	}
	v, _ := fs.GetFloat64(name)
	return &v
}

func boolFlag(fs *pflag.FlagSet, name string) *bool {
	if !fs.Changed(name) {
		return nil
	}
	v, _ := fs.GetBool(name)
	return &v
}

func listFlag(fs *pflag.FlagSet, name string) []string {
	if !fs.Changed(name) {
		return nil
	}
	v, _ := fs.GetStringSlice(name)
	return v
}

func listParams(fs *pflag.FlagSet) api.ListParams {
	get := func(name string) string {
		if fs.Lookup(name) == nil {
			return ""
		}
		v, _ := fs.GetString(name)
		return v
	}
	p := api.ListParams{
		Status:    get("status"),
		Category:  get("category"),
		Scope:     get("scope"),
		Type:      get("type"),
		Severity:  get("severity"),
		Component: get("component"),
		ProjectID: get("project"),
		EntityID:  get("entity"),
	}
	if fs.Lookup("automation-only") != nil {
		p.AutomationOnly, _ = fs.GetBool("automation-only")
	}
	return p
}
