package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"xdao.co/keysig/keysig"
	"xdao.co/keysig/config"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// usageError marks a bad invocation; run exits 2 for it and 1 otherwise.
type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

func usagef(format string, args ...interface{}) error {
	return usageError{fmt.Errorf(format, args...)}
}

func run(args []string, out io.Writer, errOut io.Writer) int {
	cmd := newRootCmd(out, errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	if err == nil {
		return 0
	}
	fmt.Fprintf(errOut, "Error: %v\n", err)
	var ue usageError
	if errors.As(err, &ue) || strings.HasPrefix(err.Error(), "unknown command") {
		return 2
	}
	return 1
}

// app carries what every subcommand needs: the viper instance the global
// flags are bound to, and the lazily loaded config and logger.
type app struct {
	out, errOut io.Writer
	v           *viper.Viper
	configPath  string

	cfg *config.Config
	log zerolog.Logger
}

func (a *app) config() (*config.Config, error) {
	if a.cfg != nil {
		return a.cfg, nil
	}
	if err := config.ReadFile(a.v, a.configPath); err != nil {
		return nil, err
	}
	cfg, err := config.Decode(a.v)
	if err != nil {
		return nil, err
	}
	log, err := cfg.Log.Logger(a.errOut)
	if err != nil {
		return nil, err
	}
	keysig.SetLogger(log)
	a.cfg, a.log = cfg, log
	return cfg, nil
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	a := &app{out: out, errOut: errOut, v: config.New()}

	root := &cobra.Command{
		Use:           "keysig",
		Short:         "Build, sign, store and look up multi-party key trees",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = cmd.Usage()
			return usagef("a subcommand is required")
		},
	}
	root.SetOut(out)
	root.SetErr(errOut)
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError{err}
	})

	flags := root.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", "", "Config file (yaml, json or toml)")
	flags.String("log-level", "", "Log level, optionally per module (warn;keysig=debug)")
	flags.String("log-format", "", "Log format: text or json")
	flags.String("node", "", "Node address for lookups")
	flags.String("store-backend", "", "Document store backend: localfs, badger or replicated")
	flags.String("store-dir", "", "Document store directory")
	flags.String("seeds-dir", "", "Seed store directory (default ~/.xdao/keysig/seeds)")
	bindFlags(a.v, flags, map[string]string{
		"log.level":     "log-level",
		"log.format":    "log-format",
		"node.target":   "node",
		"store.backend": "store-backend",
		"store.dir":     "store-dir",
		"seeds.dir":     "seeds-dir",
	})

	root.AddCommand(
		newDocCmd(a),
		newSignCmd(a),
		newUUIDsCmd(a),
		newVerifyCmd(a),
		newLookupCmd(a),
		newStoreCmd(a),
		newSeedsCmd(a),
	)
	return root
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet, keys map[string]string) {
	for key, name := range keys {
		if err := v.BindPFlag(key, flags.Lookup(name)); err != nil {
			panic(err)
		}
	}
}

func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) != n {
			return usagef("usage: %s", cmd.UseLine())
		}
		return nil
	}
}

func readInput(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

func readDocument(path string) (*keysig.SignedKey, error) {
	b, err := readInput(path)
	if err != nil {
		return nil, err
	}
	return keysig.ParseDocument(b)
}

func writeDocument(w io.Writer, sk *keysig.SignedKey) error {
	b, err := sk.DocumentIndent()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}
