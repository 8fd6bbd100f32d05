package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tuesdays-dev/mcp-stdio-server/pkg/models"
	"github.com/tuesdays-dev/mcp-stdio-server/pkg/registry"
)

func newToolsCmd(f *serveFlags) *cobra.Command {
	var schema bool

	cmd := &cobra.Command{
		Use:   "tools [NAME...]",
		Short: "List the tools this server exposes",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := f.resolve(cmd)
			if err != nil {
				return err
			}
			j, err := openJournal(cfg)
			if err != nil {
				return err
			}
			if j != nil {
				defer j.Close()
			}
			reg, err := buildRegistry(cfg, j)
			if err != nil {
				return err
			}

			defs, err := selectTools(reg, args)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			if schema {
				fmt.Fprintln(w, "NAME\tDESCRIPTION\tINPUT SCHEMA")
			} else {
				fmt.Fprintln(w, "NAME\tDESCRIPTION")
			}
			for _, def := range defs {
				if !schema {
					fmt.Fprintf(w, "%s\t%s\n", def.Name, def.Description)
					continue
				}
				data, err := json.Marshal(def.InputSchema)
				if err != nil {
					return fmt.Errorf("encode schema for %s: %w", def.Name, err)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", def.Name, def.Description, data)
			}
			return w.Flush()
		},
	}

	cmd.Flags().BoolVar(&schema, "schema", false, "include each tool's input schema")
	return cmd
}

// selectTools returns the named tools in argument order, or all of them.
func selectTools(reg *registry.Registry, names []string) ([]models.ToolDefinition, error) {
	if len(names) == 0 {
		return reg.List(), nil
	}
	defs := make([]models.ToolDefinition, 0, len(names))
	for _, name := range names {
		h, ok := reg.Lookup(name)
		if !ok {
			return nil, fmt.Errorf("unknown tool %q", name)
		}
		defs = append(defs, models.ToolDefinition{Name: name, Description: h.Description(), InputSchema: h.InputSchema()})
	}
	return defs, nil
}
