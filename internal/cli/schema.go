// Package cli describes the codeindexd command tree to a parent process:
// which command speaks the stdio protocol, and which flags and environment
// variables configure it.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const (
	helpJSONFlag = "help-json"

	// envAnnotation holds the environment variable a flag overrides.
	envAnnotation = "codeindex_env"

	// ProtocolAnnotation marks a command that serves requests on stdin/stdout.
	ProtocolAnnotation = "codeindex_protocol"
)

// FlagSchema describes one flag as the command sees it.
type FlagSchema struct {
	Name      string `json:"name"`
	Shorthand string `json:"shorthand,omitempty"`
	Type      string `json:"type"`
	Default   string `json:"default,omitempty"`
	Usage     string `json:"usage,omitempty"`
	Env       string `json:"env,omitempty"`
	Required  bool   `json:"required,omitempty"`
	Inherited bool   `json:"inherited,omitempty"`
}

// CommandSchema is the launch description of a command.
type CommandSchema struct {
	Name     string          `json:"name"`
	Usage    string          `json:"usage"`
	Short    string          `json:"short,omitempty"`
	Long     string          `json:"long,omitempty"`
	Aliases  []string        `json:"aliases,omitempty"`
	Protocol string          `json:"protocol,omitempty"`
	Flags    []FlagSchema    `json:"flags,omitempty"`
	Commands []CommandSchema `json:"commands,omitempty"`
}

// BindEnv records that the flag overrides env and mentions env in its usage.
func BindEnv(flags *pflag.FlagSet, name, env string) {
	f := flags.Lookup(name)
	if f == nil {
		return
	}
	_ = flags.SetAnnotation(name, envAnnotation, []string{env})
	f.Usage = fmt.Sprintf("%s (%s)", f.Usage, env)
}

// Describe builds the schema of cmd and every available subcommand. A
// subcommand's flags include those it inherits, since they are valid on its
// command line.
func Describe(cmd *cobra.Command) CommandSchema {
	schema := CommandSchema{
		Name:     cmd.Name(),
		Usage:    cmd.UseLine(),
		Short:    cmd.Short,
		Long:     cmd.Long,
		Aliases:  cmd.Aliases,
		Protocol: cmd.Annotations[ProtocolAnnotation],
	}

	cmd.LocalFlags().VisitAll(func(f *pflag.Flag) {
		if listedFlag(f) {
			schema.Flags = append(schema.Flags, describeFlag(f, false))
		}
	})
	cmd.InheritedFlags().VisitAll(func(f *pflag.Flag) {
		if listedFlag(f) {
			schema.Flags = append(schema.Flags, describeFlag(f, true))
		}
	})
	sort.SliceStable(schema.Flags, func(i, j int) bool {
		return !schema.Flags[i].Inherited && schema.Flags[j].Inherited
	})

	for _, sub := range cmd.Commands() {
		if sub.IsAvailableCommand() {
			schema.Commands = append(schema.Commands, Describe(sub))
		}
	}
	return schema
}

func listedFlag(f *pflag.Flag) bool {
	return f.Name != helpJSONFlag && f.Name != "help" && f.Name != "version" && !f.Hidden
}

func describeFlag(f *pflag.Flag, inherited bool) FlagSchema {
	s := FlagSchema{
		Name:      f.Name,
		Shorthand: f.Shorthand,
		Type:      f.Value.Type(),
		Default:   f.DefValue,
		Usage:     f.Usage,
		Inherited: inherited,
	}
	if env := f.Annotations[envAnnotation]; len(env) > 0 {
		s.Env = env[0]
	}
	if req := f.Annotations[cobra.BashCompOneRequiredFlag]; len(req) > 0 && req[0] == "true" {
		s.Required = true
	}
	return s
}

// WriteSchema writes the schema of cmd as indented JSON.
func WriteSchema(w io.Writer, cmd *cobra.Command) error {
	output, err := json.MarshalIndent(Describe(cmd), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode schema: %w", err)
	}
	_, err = fmt.Fprintln(w, string(output))
	return err
}

// AddHelpJSONFlag adds --help-json to cmd and its children.
func AddHelpJSONFlag(cmd *cobra.Command) {
	cmd.PersistentFlags().Bool(helpJSONFlag, false, "Print the command schema as JSON and exit")
}

// SchemaTarget reports whether args ask for --help-json and, if so, which
// command it applies to. It runs before Execute so positional argument checks
// do not get in the way. Arguments after "--" are not inspected.
func SchemaTarget(root *cobra.Command, args []string) (*cobra.Command, bool) {
	for i, arg := range args {
		switch arg {
		case "--":
			return nil, false
		case "--" + helpJSONFlag:
			// An unknown word resolves to the deepest command found so far.
			target, _, _ := root.Find(args[:i])
			if target == nil {
				target = root
			}
			return target, true
		}
	}
	return nil, false
}
