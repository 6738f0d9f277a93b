package main

import (
	"fmt"
	"io"
	"os"

	"github.com/ipfs/go-cid"
	"github.com/spf13/cobra"

	"xdao.co/keysig/cidutil"
	"xdao.co/keysig/storage"
	"xdao.co/keysig/storage/bundle"
	"xdao.co/keysig/storage/casregistry"
	"xdao.co/keysig/storage/keystore"
)

func newStoreCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "store",
		Short: "Keep key/signature documents in the content-addressed store",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = cmd.Usage()
			return usagef("store needs a subcommand: put, get, ls, export, import, backends")
		},
	}
	cmd.AddCommand(
		newStorePutCmd(a),
		newStoreGetCmd(a),
		newStoreLsCmd(a),
		newStoreExportCmd(a),
		newStoreImportCmd(a),
		newStoreBackendsCmd(a),
	)
	return cmd
}

// withStore opens the configured store for the duration of fn.
func (a *app) withStore(fn func(*keystore.Store) error) error {
	cfg, err := a.config()
	if err != nil {
		return err
	}
	cas, closeFn, err := cfg.Store.Open()
	if err != nil {
		return err
	}
	defer func() {
		if err := closeFn(); err != nil {
			a.log.Warn().Err(err).Msg("close store")
		}
	}()
	return fn(keystore.New(cas))
}

func newStorePutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "put <document>",
		Short: "Store a document and print its CID",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sk, err := readDocument(args[0])
			if err != nil {
				return err
			}
			return a.withStore(func(s *keystore.Store) error {
				id, err := s.Put(sk)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(a.out, id)
				return err
			})
		},
	}
}

func newStoreGetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get <cid>",
		Short: "Print a stored document",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(func(s *keystore.Store) error {
				sk, err := s.GetString(args[0])
				if err != nil {
					return err
				}
				return writeDocument(a.out, sk)
			})
		},
	}
}

func newStoreLsCmd(a *app) *cobra.Command {
	var long bool
	cmd := &cobra.Command{
		Use:   "ls [--long]",
		Short: "List stored document CIDs",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(func(s *keystore.Store) error {
				ids, err := storage.List(s.CAS)
				if err != nil {
					return err
				}
				for _, id := range ids {
					if !long {
						fmt.Fprintln(a.out, id)
						continue
					}
					sk, err := s.Get(id)
					if err != nil {
						fmt.Fprintf(a.out, "%s\t?\t%v\n", id, err)
						continue
					}
					fmt.Fprintf(a.out, "%s\t%s\t%s\n", id, sk.Type(), sk.Description)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&long, "long", "l", false, "Also print each document's key type and description")
	return cmd
}

func newStoreBackendsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "backends",
		Short: "List the compiled-in store backends",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range casregistry.Names() {
				fmt.Fprintln(a.out, name)
			}
			return nil
		},
	}
}

func newStoreExportCmd(a *app) *cobra.Command {
	var outPath string
	var manifest bool
	cmd := &cobra.Command{
		Use:   "export --out <file> [--manifest] [cid...]",
		Short: "Write documents to a bundle; all documents when no CID is given",
		RunE: func(cmd *cobra.Command, args []string) error {
			if outPath == "" {
				return usagef("--out is required")
			}
			var ids []cid.Cid
			for _, arg := range args {
				id, err := cidutil.Parse(arg)
				if err != nil {
					return usagef("invalid cid %q: %v", arg, err)
				}
				ids = append(ids, id)
			}
			return a.withStore(func(s *keystore.Store) error {
				if len(ids) == 0 {
					var err error
					if ids, err = storage.List(s.CAS); err != nil {
						return err
					}
				}
				var w io.Writer = a.out
				if outPath != "-" {
					f, err := os.Create(outPath)
					if err != nil {
						return err
					}
					defer f.Close()
					w = f
				}
				if err := bundle.Export(w, s.CAS, ids, bundle.ExportOptions{Manifest: manifest}); err != nil {
					return err
				}
				a.log.Info().Int("documents", len(ids)).Str("out", outPath).Msg("exported bundle")
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Bundle file (- for stdout)")
	cmd.Flags().BoolVar(&manifest, "manifest", true, "Include a manifest.json summary")
	return cmd
}

func newStoreImportCmd(a *app) *cobra.Command {
	var skipUnknown bool
	cmd := &cobra.Command{
		Use:   "import <bundle>",
		Short: "Store every document of a bundle and print their CIDs",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var r io.Reader = os.Stdin
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				r = f
			}
			return a.withStore(func(s *keystore.Store) error {
				ids, err := bundle.Import(r, s.CAS, bundle.ImportOptions{SkipUnknown: skipUnknown})
				for _, id := range ids {
					fmt.Fprintln(a.out, id)
				}
				return err
			})
		},
	}
	cmd.Flags().BoolVar(&skipUnknown, "skip-unknown", false, "Ignore entries that are not documents")
	return cmd
}
