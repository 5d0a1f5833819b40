package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noop(*cobra.Command, []string) error { return nil }

func testTree() *cobra.Command {
	root := &cobra.Command{Use: "codeindexd", Short: "root"}
	root.PersistentFlags().String("host", "", "Database host")
	BindEnv(root.PersistentFlags(), "host", "CODEINDEX_DB_HOST")
	AddHelpJSONFlag(root)

	serve := &cobra.Command{
		Use:         "serve",
		Short:       "Serve requests",
		RunE:        noop,
		Annotations: map[string]string{ProtocolAnnotation: "jsonl-stdio"},
	}
	serve.Flags().Bool("no-migrate", false, "Skip migrations")

	query := &cobra.Command{Use: "query <text>", Aliases: []string{"q"}, Args: cobra.MinimumNArgs(1), RunE: noop}
	query.Flags().IntP("limit", "n", 5, "Results to show")
	_ = query.MarkFlagRequired("limit")

	hidden := &cobra.Command{Use: "debug", Hidden: true, RunE: noop}

	root.AddCommand(serve, query, hidden)
	return root
}

func findCommand(t *testing.T, schema CommandSchema, name string) CommandSchema {
	t.Helper()
	for _, c := range schema.Commands {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("command %q not in schema", name)
	return CommandSchema{}
}

func TestDescribe(t *testing.T) {
	schema := Describe(testTree())

	assert.Equal(t, "codeindexd", schema.Name)
	require.Len(t, schema.Commands, 2)

	serve := findCommand(t, schema, "serve")
	assert.Equal(t, "jsonl-stdio", serve.Protocol)
	assert.Equal(t, "codeindexd serve [flags]", serve.Usage)
	require.Len(t, serve.Flags, 2)
	assert.Equal(t, FlagSchema{Name: "no-migrate", Type: "bool", Default: "false", Usage: "Skip migrations"}, serve.Flags[0])
	assert.Equal(t, FlagSchema{
		Name:      "host",
		Type:      "string",
		Usage:     "Database host (CODEINDEX_DB_HOST)",
		Env:       "CODEINDEX_DB_HOST",
		Inherited: true,
	}, serve.Flags[1])

	query := findCommand(t, schema, "query")
	assert.Equal(t, []string{"q"}, query.Aliases)
	assert.Empty(t, query.Protocol)
	assert.Equal(t, "limit", query.Flags[0].Name)
	assert.Equal(t, "n", query.Flags[0].Shorthand)
	assert.Equal(t, "5", query.Flags[0].Default)
	assert.True(t, query.Flags[0].Required)
}

func TestDescribe_RootFlagsAreLocal(t *testing.T) {
	schema := Describe(testTree())

	require.Len(t, schema.Flags, 1)
	assert.Equal(t, "host", schema.Flags[0].Name)
	assert.False(t, schema.Flags[0].Inherited)
	for _, f := range schema.Flags {
		assert.NotEqual(t, helpJSONFlag, f.Name)
	}
}

func TestBindEnv_UnknownFlag(t *testing.T) {
	root := testTree()
	BindEnv(root.PersistentFlags(), "port", "CODEINDEX_DB_PORT")

	assert.Nil(t, root.PersistentFlags().Lookup("port"))
}

func TestSchemaTarget(t *testing.T) {
	root := testTree()

	tests := []struct {
		name   string
		args   []string
		want   string
		wantOK bool
	}{
		{"absent", []string{"serve"}, "", false},
		{"root", []string{"--help-json"}, "codeindexd", true},
		{"subcommand", []string{"serve", "--help-json"}, "serve", true},
		{"after a valued flag", []string{"--host", "db", "serve", "--help-json"}, "serve", true},
		{"alias", []string{"q", "--help-json"}, "query", true},
		{"positional words", []string{"query", "foo", "bar", "--help-json"}, "query", true},
		{"unknown falls back to root", []string{"nope", "--help-json"}, "codeindexd", true},
		{"after terminator", []string{"query", "--", "--help-json"}, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, ok := SchemaTarget(root, tt.args)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				require.NotNil(t, cmd)
				assert.Equal(t, tt.want, cmd.Name())
			}
		})
	}
}

func TestWriteSchema(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSchema(&buf, testTree()))

	var decoded CommandSchema
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "codeindexd", decoded.Name)
	assert.Len(t, decoded.Commands, 2)
}
