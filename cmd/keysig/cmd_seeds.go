package main

import (
	"crypto/rand"
	"fmt"

	"github.com/cloudflare/circl/sign/ed25519"
	"github.com/spf13/cobra"

	"xdao.co/keysig/keysig"
	"xdao.co/keysig/keys"
)

func newSeedsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seeds",
		Short: "Manage local Ed25519 seeds for ceremony participants",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = cmd.Usage()
			return usagef("seeds needs a subcommand: init, derive, export, leaf, list")
		},
	}
	cmd.AddCommand(
		newSeedsInitCmd(a),
		newSeedsDeriveCmd(a),
		newSeedsExportCmd(a),
		newSeedsLeafCmd(a),
		newSeedsListCmd(a),
	)
	return cmd
}

func (a *app) seedStore() (*keys.SeedStore, error) {
	cfg, err := a.config()
	if err != nil {
		return nil, err
	}
	return keys.OpenSeedStore(cfg.Seeds.Dir)
}

func newSeedsInitCmd(a *app) *cobra.Command {
	var name, seedHex string
	var force bool
	cmd := &cobra.Command{
		Use:   "init --name <name> [--seed-hex <64hex>] [--force]",
		Short: "Create a root seed",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := keys.CheckKeyName(name); err != nil {
				return usagef("invalid --name: %v", err)
			}
			var seed []byte
			if seedHex != "" {
				var err error
				if seed, err = keys.ParseSeedHex(seedHex); err != nil {
					return usagef("invalid --seed-hex: %v", err)
				}
			} else {
				seed = make([]byte, ed25519.SeedSize)
				if _, err := rand.Read(seed); err != nil {
					return fmt.Errorf("rand: %w", err)
				}
			}
			ss, err := a.seedStore()
			if err != nil {
				return err
			}
			pub, err := ss.InitRoot(name, seed, force)
			if err != nil {
				return fmt.Errorf("write seed: %w", err)
			}
			_, err = fmt.Fprintln(a.out, pub)
			return err
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Participant name")
	cmd.Flags().StringVar(&seedHex, "seed-hex", "", "Use this seed instead of a random one")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing seed")
	return cmd
}

func newSeedsDeriveCmd(a *app) *cobra.Command {
	var from, role string
	var force bool
	cmd := &cobra.Command{
		Use:   "derive --from <name> --role <role> [--force]",
		Short: "Derive a role seed from a root seed",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := keys.CheckKeyName(from); err != nil {
				return usagef("invalid --from: %v", err)
			}
			if err := keys.CheckRole(role); err != nil {
				return usagef("invalid --role: %v", err)
			}
			ss, err := a.seedStore()
			if err != nil {
				return err
			}
			pub, err := ss.DeriveRole(from, role, force)
			if err != nil {
				return fmt.Errorf("derive role seed: %w", err)
			}
			_, err = fmt.Fprintln(a.out, pub)
			return err
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "Root seed name")
	cmd.Flags().StringVar(&role, "role", "", "Role, e.g. treasury or recovery")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing role seed")
	return cmd
}

func newSeedsExportCmd(a *app) *cobra.Command {
	var name, role string
	cmd := &cobra.Command{
		Use:   "export --name <name> [--role <role>]",
		Short: "Print a seed's public key",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			ss, err := a.seedStore()
			if err != nil {
				return err
			}
			s, err := ss.Signer(name, role)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(a.out, keys.FormatPublicKey(s.Type(), s.PublicKey()))
			return err
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Seed name")
	cmd.Flags().StringVar(&role, "role", "", "Export this derived role instead of the root")
	return cmd
}

func newSeedsLeafCmd(a *app) *cobra.Command {
	var name, role, description string
	cmd := &cobra.Command{
		Use:   "leaf --name <name> [--role <role>] [--description <text>]",
		Short: "Print an unsigned ED25519 leaf document for a seed",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			ss, err := a.seedStore()
			if err != nil {
				return err
			}
			s, err := ss.Signer(name, role)
			if err != nil {
				return err
			}
			return writeDocument(a.out, keysig.NewEd25519(s.PublicKey(), nil).WithDescription(description))
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Seed name")
	cmd.Flags().StringVar(&role, "role", "", "Use this derived role")
	cmd.Flags().StringVar(&description, "description", "", "Leaf description")
	return cmd
}

func newSeedsListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored seeds and their roles",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			ss, err := a.seedStore()
			if err != nil {
				return err
			}
			entries, err := ss.List()
			if err != nil {
				return err
			}
			for _, e := range entries {
				fmt.Fprintln(a.out, e.Name)
				for _, r := range e.Roles {
					fmt.Fprintf(a.out, "  - %s\n", r)
				}
			}
			return nil
		},
	}
}
