package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/yair/encore/pkg/graph"
	"github.com/yair/encore/pkg/resolvers"
)

var schemaStrategies bool

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the GraphQL schema",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if schemaStrategies {
			return printStrategies(cmd)
		}
		_, err := fmt.Fprint(cmd.OutOrStdout(), graph.SchemaSource())
		return err
	},
}

func init() {
	schemaCmd.Flags().BoolVar(&schemaStrategies, "strategies", false, "List how each field is resolved instead of the schema")
}

// printStrategies lists the resolution table. Connectors are not needed to
// read it, so the table is built without any.
func printStrategies(cmd *cobra.Command) error {
	table := resolvers.New(resolvers.Config{}).Table()

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "FIELD\tKIND\tFALLBACK\tBATCHED")
	for _, field := range table.Fields() {
		typeName, fieldName, _ := strings.Cut(field, ".")
		s, _ := table.Lookup(typeName, fieldName)
		fmt.Fprintf(w, "%s\t%s\t%s\t%t\n", field, s.Kind, s.Fallback, s.Batched)
	}
	return w.Flush()
}
