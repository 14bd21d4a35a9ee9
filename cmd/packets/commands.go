package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"packets/internal/collection"
	"packets/internal/har"
	"packets/internal/workspace"
	"packets/internal/yamlio"
)

var (
	sendInclude bool
	listFilter  string
	exportOut   string
	harOut      string
	harLimit    int
)

func init() {
	sendCmd.Flags().BoolVarP(&sendInclude, "include", "i", false, "print the status line and response headers")
	listCmd.Flags().StringVarP(&listFilter, "filter", "f", "", "fuzzy filter on request names")
	exportCmd.Flags().StringVarP(&exportOut, "output", "o", "", "write to this file instead of stdout")
	harCmd.Flags().StringVarP(&harOut, "output", "o", "", "write to this file instead of stdout")
	harCmd.Flags().IntVar(&harLimit, "limit", 0, "number of newest entries to export (default history_limit)")
}

var sendCmd = &cobra.Command{
	Use:   "send <request>",
	Short: "Send a saved request and print the response",
	Long: `Send resolves <request> by id, exact name or fuzzy name, sends it the way
the workspace would and prints the response body. The exchange is recorded in
the history.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()
		ws, disp, err := a.workspace()
		if err != nil {
			return err
		}
		defer disp.Close()

		id, err := resolveRequest(ws, args[0])
		if err != nil {
			return err
		}
		if err := ws.Send(id); err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), a.cfg.RequestTimeout+5*time.Second)
		defer cancel()
		res, err := ws.Wait(ctx, id)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if resp := res.Response; resp != nil && sendInclude {
			fmt.Fprintln(out, resp.StatusText)
			for _, h := range resp.Headers {
				fmt.Fprintf(out, "%s: %s\n", h.Key, h.Value)
			}
			fmt.Fprintln(out)
		}
		if res.Err != nil {
			return res.Err
		}
		_, err = io.WriteString(out, res.Text)
		return err
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List collections and their requests",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()
		ws, disp, err := a.workspace()
		if err != nil {
			return err
		}
		defer disp.Close()

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "COLLECTION\tREQUEST\tMETHOD\tURL\tID")
		names := map[uuid.UUID]string{}
		for _, c := range ws.Collections() {
			names[c.ID] = c.Name
		}
		for _, m := range ws.Search(listFilter) {
			r, err := ws.Request(m.RequestID)
			if err != nil {
				return err
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", names[m.CollectionID], r.Name(), r.Data.Method, r.Data.URL, r.ID)
		}
		return tw.Flush()
	},
}

var importCmd = &cobra.Command{
	Use:   "import <file.yaml>",
	Short: "Import a collection from a YAML file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()
		ws, disp, err := a.workspace()
		if err != nil {
			return err
		}
		defer disp.Close()

		c, err := yamlio.Load(args[0])
		if err != nil {
			return err
		}
		ws.AddCollection(c)
		if err := a.store.SaveState(ws.Snapshot()); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "imported %q with %d requests (%s)\n", c.Name, len(c.Requests), c.ID)
		return nil
	},
}

var exportCmd = &cobra.Command{
	Use:   "export <collection>",
	Short: "Export a collection as YAML",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()
		ws, disp, err := a.workspace()
		if err != nil {
			return err
		}
		defer disp.Close()

		c, err := resolveCollection(ws, args[0])
		if err != nil {
			return err
		}
		if exportOut != "" {
			path, err := yamlio.Save(c, exportOut)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s\n", path)
			return nil
		}
		data, err := yamlio.Marshal(c)
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}

var harCmd = &cobra.Command{
	Use:   "har",
	Short: "Export the exchange history as a HAR file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		limit := harLimit
		if limit <= 0 {
			limit = a.cfg.HistoryLimit
		}
		list, err := a.store.List(limit)
		if err != nil {
			return err
		}
		b, err := json.MarshalIndent(har.FromEntries(list, version), "", "  ")
		if err != nil {
			return err
		}
		if harOut != "" {
			return os.WriteFile(harOut, b, 0o644)
		}
		_, err = cmd.OutOrStdout().Write(b)
		return err
	},
}

// resolveRequest accepts an id, an exact (case-insensitive) name or the best
// fuzzy match.
func resolveRequest(ws *workspace.Workspace, arg string) (uuid.UUID, error) {
	if id, err := uuid.Parse(arg); err == nil {
		if _, err := ws.Request(id); err != nil {
			return uuid.Nil, err
		}
		return id, nil
	}
	matches := ws.Search(arg)
	for _, m := range matches {
		if strings.EqualFold(m.Name, arg) {
			return m.RequestID, nil
		}
	}
	if len(matches) == 0 {
		return uuid.Nil, fmt.Errorf("%q: %w", arg, collection.ErrRequestNotFound)
	}
	return matches[0].RequestID, nil
}

func resolveCollection(ws *workspace.Workspace, arg string) (*collection.Collection, error) {
	if id, err := uuid.Parse(arg); err == nil {
		return ws.Collection(id)
	}
	for _, c := range ws.Collections() {
		if strings.EqualFold(c.Name, arg) {
			return c, nil
		}
	}
	return nil, fmt.Errorf("%q: %w", arg, collection.ErrCollectionNotFound)
}
