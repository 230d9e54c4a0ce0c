package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/yair/encore/pkg/domain"
	"github.com/yair/encore/pkg/graph"
)

var (
	queryVars      []string
	queryOperation string
)

var queryCmd = &cobra.Command{
	Use:   "query [document]",
	Short: "Execute one GraphQL query and print the result",
	Long: `Executes a query document against the live providers and prints the JSON
response. Pass "-" to read the document from stdin.

Example:
  encore query 'query($n: String!) { artists(name: $n, limit: 3) { name } }' --var n=Muse`,
	Args: cobra.ExactArgs(1),
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().StringArrayVar(&queryVars, "var", nil, "Variable as name=value; JSON values are decoded")
	queryCmd.Flags().StringVar(&queryOperation, "operation", "", "Operation name when the document has several")
}

func runQuery(cmd *cobra.Command, args []string) error {
	document := args[0]
	if document == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("failed to read query: %w", err)
		}
		document = string(data)
	}

	vars, err := parseVars(queryVars)
	if err != nil {
		return err
	}

	a, err := newApp(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	req := graph.Request{Query: document, OperationName: queryOperation, Variables: vars}
	ctx := commandContext(cmd)

	start := time.Now()
	resp := a.executor.Execute(ctx, req)
	if a.queryLog != nil {
		record := &domain.QueryRecord{
			OperationName: req.OperationName,
			Query:         req.Query,
			Transport:     "cli",
			Duration:      time.Since(start),
			ErrorCount:    len(resp.Errors),
		}
		if err := a.queryLog.Record(ctx, record); err != nil {
			logger.Warn("failed to record query", zap.Error(err))
		}
	}

	out, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode response: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}

// commandContext tolerates commands run outside Execute, which leaves the
// context unset.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// parseVars turns name=value pairs into query variables. Values that parse
// as JSON keep their type; anything else is a string.
func parseVars(pairs []string) (map[string]interface{}, error) {
	vars := make(map[string]interface{}, len(pairs))
	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid variable %q: expected name=value", pair)
		}

		var decoded interface{}
		decoder := json.NewDecoder(strings.NewReader(value))
		decoder.UseNumber()
		if err := decoder.Decode(&decoded); err != nil || decoder.More() {
			decoded = value
		}
		vars[name] = decoded
	}
	return vars, nil
}
