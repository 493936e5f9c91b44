package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/threespace/site-backend/internal/resource"
	"github.com/threespace/site-backend/internal/resource/service"
	"go.mongodb.org/mongo-driver/bson"
)

func newIndexesCmd(connect Connector) *cobra.Command {
	return &cobra.Command{
		Use:   "indexes",
		Short: "Create collection indexes (sort, active filter, text search, token TTL)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, connect, func(ctx context.Context, a *App) error {
				if a.Indexes == nil {
					return nil
				}
				if err := a.Indexes(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "indexes are up to date")
				return nil
			})
		},
	}
}

func newListCmd(connect Connector) *cobra.Command {
	var (
		all   bool
		page  int
		limit int
		query string
	)
	cmd := &cobra.Command{
		Use:   "list RESOURCE",
		Short: "List stored entries, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			desc, err := descriptor(args[0])
			if err != nil {
				return err
			}
			return withApp(cmd, connect, func(ctx context.Context, a *App) error {
				svc := service.New[bson.M](desc, a.Repo(desc), nil)
				req := service.PageRequest{Page: page, PageSize: limit, Search: query}
				list := svc.ListActive
				if all {
					list = svc.ListAll
				}
				res, err := list(ctx, req)
				if err != nil {
					return err
				}
				return printPage(cmd.OutOrStdout(), desc, res)
			})
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "include inactive entries")
	cmd.Flags().IntVar(&page, "page", 1, "page number")
	cmd.Flags().IntVar(&limit, "limit", 20, "page size")
	cmd.Flags().StringVarP(&query, "query", "q", "", "free-text search")
	return cmd
}

func newCountCmd(connect Connector) *cobra.Command {
	var active bool
	cmd := &cobra.Command{
		Use:   "count RESOURCE",
		Short: "Count stored entries",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			desc, err := descriptor(args[0])
			if err != nil {
				return err
			}
			return withApp(cmd, connect, func(ctx context.Context, a *App) error {
				n, err := service.New[bson.M](desc, a.Repo(desc), nil).Count(ctx, active)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), n)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&active, "active", false, "count active entries only")
	return cmd
}

func newToggleCmd(connect Connector) *cobra.Command {
	return &cobra.Command{
		Use:   "toggle RESOURCE ID",
		Short: "Flip the isActive flag of a blog post or career posting",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			desc, err := descriptor(args[0])
			if err != nil {
				return err
			}
			return withApp(cmd, connect, func(ctx context.Context, a *App) error {
				doc, err := service.New[bson.M](desc, a.Repo(desc), nil).ToggleActive(ctx, args[1])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s isActive=%v\n", desc.Name, args[1], (*doc)[resource.FieldActive])
				return nil
			})
		},
	}
}

func printPage(w io.Writer, desc resource.Descriptor, res *service.Page[bson.M]) error {
	if jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{"items": res.Items, "pagination": res.Pagination})
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tLABEL\tACTIVE\tCREATED")
	for _, doc := range res.Items {
		fmt.Fprintf(tw, "%s\t%v\t%s\t%s\n", idString(doc[resource.FieldID]), doc[desc.LabelField], activeString(desc, doc), timeString(doc[resource.FieldCreatedAt]))
	}
	p := res.Pagination
	fmt.Fprintf(tw, "\npage %d of %d (%d total)\n", p.Page, p.TotalPages, p.TotalItems)
	return tw.Flush()
}

func idString(v any) string {
	if h, ok := v.(interface{ Hex() string }); ok {
		return h.Hex()
	}
	return fmt.Sprint(v)
}

func activeString(desc resource.Descriptor, doc bson.M) string {
	if !desc.Activatable {
		return "-"
	}
	b, _ := doc[resource.FieldActive].(bool)
	return strconv.FormatBool(b)
}

func timeString(v any) string {
	switch t := v.(type) {
	case time.Time:
		return t.UTC().Format(time.RFC3339)
	case interface{ Time() time.Time }:
		return t.Time().UTC().Format(time.RFC3339)
	}
	return "-"
}
