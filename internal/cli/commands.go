package cli

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/andreyvit/graphdata"
	"github.com/andreyvit/graphdata/graph"
	"github.com/andreyvit/graphdata/store"
)

func (a *app) lsCommand() *cobra.Command {
	var prefix string
	cmd := &cobra.Command{
		Use:   "ls <db>",
		Short: "List stored sources",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ix, err := a.openIndex(cmd.Context(), args[0], true)
			if err != nil {
				return err
			}
			defer ix.Close()

			sources, err := ix.SourcesWithPrefix(prefix)
			if err != nil {
				return err
			}
			for _, s := range sources {
				fmt.Fprintln(cmd.OutOrStdout(), s)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&prefix, "prefix", "", "only list sources starting with this prefix")
	return cmd
}

func (a *app) dumpCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "dump <db> [source...]",
		Short: "Print records as JSON lines",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ix, err := a.openIndex(cmd.Context(), args[0], true)
			if err != nil {
				return err
			}
			defer ix.Close()

			enc := json.NewEncoder(cmd.OutOrStdout())
			emit := func(rec *store.Record) error {
				return enc.Encode(newRecordJSON(ix.Schema(), rec))
			}
			if len(args) == 1 {
				return ix.ForEach(emit)
			}
			for _, source := range args[1:] {
				rec, err := ix.Load(source)
				if err != nil {
					return err
				}
				if err := emit(rec); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func (a *app) verifyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <db>",
		Short: "Decode every record and report corrupted ones",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := loggerFromContext(cmd.Context())
			ix, err := a.openIndex(cmd.Context(), args[0], true)
			if err != nil {
				return err
			}
			defer ix.Close()

			p := newProgress(logger)
			ok, bad, err := ix.Verify()
			if err != nil {
				return err
			}
			for _, re := range bad {
				fmt.Fprintf(cmd.OutOrStdout(), "CORRUPT %s: %v\n", re.Source, re.Err)
			}
			p.done(fmt.Sprintf("Verified %d records", ok+len(bad)))
			fmt.Fprintf(cmd.OutOrStdout(), "%d ok, %d corrupt\n", ok, len(bad))
			if len(bad) > 0 {
				return fmt.Errorf("%d corrupt records", len(bad))
			}
			return nil
		},
	}
}

func (a *app) statsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stats <db>",
		Short: "Print record counts and sizes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ix, err := a.openIndex(cmd.Context(), args[0], true)
			if err != nil {
				return err
			}
			defer ix.Close()

			var nodes, edges, usages int
			err = ix.ForEach(func(rec *store.Record) error {
				nodes += len(rec.Nodes)
				edges += len(rec.Edges)
				usages += len(rec.Usages)
				for _, n := range rec.Nodes {
					usages += len(n.Usages)
				}
				return nil
			})
			if err != nil {
				return err
			}
			st, err := ix.Stats()
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "records:   %d\n", st.Records)
			fmt.Fprintf(w, "nodes:     %d\n", nodes)
			fmt.Fprintf(w, "edges:     %d\n", edges)
			fmt.Fprintf(w, "usages:    %d\n", usages)
			fmt.Fprintf(w, "data:      %d bytes\n", st.DataBytes)
			fmt.Fprintf(w, "file:      %d bytes\n", st.FileSize)
			return nil
		},
	}
}

func (a *app) rmCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <db> <source...>",
		Short: "Delete the records of the given sources",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := loggerFromContext(cmd.Context())
			ix, err := a.openIndex(cmd.Context(), args[0], false)
			if err != nil {
				return err
			}
			defer ix.Close()

			for _, source := range args[1:] {
				if err := ix.Delete(source); err != nil {
					return err
				}
				logger.Info("deleted", "source", source)
			}
			return nil
		},
	}
}

type recordJSON struct {
	Source string      `json:"source"`
	Digest string      `json:"digest"`
	Nodes  []nodeJSON  `json:"nodes,omitempty"`
	Edges  []edgeJSON  `json:"edges,omitempty"`
	Usages []usageJSON `json:"usages,omitempty"`
}

type nodeJSON struct {
	ID         string            `json:"id"`
	Flags      int32             `json:"flags"`
	Outer      string            `json:"outer,omitempty"`
	Superclass string            `json:"superclass,omitempty"`
	Interfaces []string          `json:"interfaces,omitempty"`
	Attrs      map[string]string `json:"attrs,omitempty"`
	Usages     []usageJSON       `json:"usages,omitempty"`
}

type edgeJSON struct {
	From string `json:"from"`
	To   string `json:"to"`
	Rel  string `json:"rel"`
}

type usageJSON struct {
	Kind  string `json:"kind"`
	Owner string `json:"owner"`
	Usage any    `json:"usage"`
}

func newRecordJSON(scm *graphdata.Schema, rec *store.Record) recordJSON {
	r := recordJSON{
		Source: rec.Source.Path,
		Digest: strconv.FormatUint(rec.Source.Digest, 16),
		Usages: usagesJSON(scm, rec.Usages),
	}
	for _, n := range rec.Nodes {
		nj := nodeJSON{
			ID:         n.ID.Name,
			Flags:      n.Flags,
			Outer:      n.Outer,
			Superclass: n.Superclass.Name,
			Attrs:      n.Attrs,
			Usages:     usagesJSON(scm, n.Usages),
		}
		for _, id := range n.Interfaces {
			nj.Interfaces = append(nj.Interfaces, id.Name)
		}
		r.Nodes = append(r.Nodes, nj)
	}
	for _, e := range rec.Edges {
		r.Edges = append(r.Edges, edgeJSON{e.From.Name, e.To.Name, e.Rel.String()})
	}
	return r
}

func usagesJSON(scm *graphdata.Schema, usages []graphdata.Usage) []usageJSON {
	var result []usageJSON
	for _, u := range usages {
		result = append(result, usageJSON{
			Kind:  scm.KindOf(u).Name(),
			Owner: ownerName(u.ElementOwner()),
			Usage: u,
		})
	}
	return result
}

func ownerName(owner graphdata.Element) string {
	switch o := owner.(type) {
	case graph.NodeID:
		return o.Name
	case graph.ModuleID:
		return o.Name
	case fmt.Stringer:
		return o.String()
	default:
		return fmt.Sprint(owner)
	}
}
