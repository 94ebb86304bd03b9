// Command fizzgig is the CLI surface over the ledger, its conflict
// resolution, and Strider relay sync, wrapping Ledger/Strider
// operations the way a desktop shell's command dispatch would. Grounded
// on the factory-function cobra style in
// orbas1-Synnergy/synnergy-network/cmd/synnergy/main.go.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/fizzgig/ledger/internal/archiveexport"
	"github.com/fizzgig/ledger/internal/pwgen"
	"github.com/fizzgig/ledger/ledger"
	"github.com/fizzgig/ledger/strider/client"
	"github.com/fizzgig/ledger/strider/glue"
	"github.com/fizzgig/ledger/strider/server"
)

// entry is the generic payload type the CLI operates over: a document's
// shape is whatever JSON the caller supplies on the command line.
type entry = map[string]any

func main() {
	var base, label, passphrase string

	root := &cobra.Command{Use: "fizzgig", Short: "encrypted local ledger and relay sync"}
	root.PersistentFlags().StringVar(&base, "base", "", "directory the .fizzgig store lives under (defaults to the user's home)")
	root.PersistentFlags().StringVar(&label, "label", "default", "ledger label")
	root.PersistentFlags().StringVar(&passphrase, "passphrase", "", "ledger master passphrase")

	open := func() (*ledger.Ledger[entry], error) {
		return ledger.Open[entry](base, label, passphrase)
	}

	root.AddCommand(createCmd(&open))
	root.AddCommand(readCmd(&open))
	root.AddCommand(updateCmd(&open))
	root.AddCommand(removeCmd(&open))
	root.AddCommand(listCmd(&open))
	root.AddCommand(conflictsCmd(&open))
	root.AddCommand(resolveCmd(&open))
	root.AddCommand(exportCmd(&open))
	root.AddCommand(genPwCmd())
	root.AddCommand(pushCmd(&open))
	root.AddCommand(pullCmd(&open))
	root.AddCommand(serveCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type opener = func() (*ledger.Ledger[entry], error)

func createCmd(open *opener) *cobra.Command {
	return &cobra.Command{
		Use:   "create <name> <json>",
		Short: "create a new ledger entry",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := (*open)()
			if err != nil {
				return err
			}
			var payload entry
			if err := json.Unmarshal([]byte(args[1]), &payload); err != nil {
				return fmt.Errorf("invalid json payload: %w", err)
			}
			return l.Create(args[0], payload)
		},
	}
}

func readCmd(open *opener) *cobra.Command {
	return &cobra.Command{
		Use:   "read <name>",
		Short: "read a ledger entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := (*open)()
			if err != nil {
				return err
			}
			payload, err := l.Read(args[0])
			if err != nil {
				return err
			}
			return printJSON(payload)
		},
	}
}

func updateCmd(open *opener) *cobra.Command {
	return &cobra.Command{
		Use:   "update <name> <json>",
		Short: "update an existing ledger entry",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := (*open)()
			if err != nil {
				return err
			}
			var payload entry
			if err := json.Unmarshal([]byte(args[1]), &payload); err != nil {
				return fmt.Errorf("invalid json payload: %w", err)
			}
			return l.Update(args[0], payload)
		},
	}
}

func removeCmd(open *opener) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <name>",
		Short: "remove a ledger entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := (*open)()
			if err != nil {
				return err
			}
			return l.Remove(args[0])
		},
	}
}

func listCmd(open *opener) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "list ledger entry names",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := (*open)()
			if err != nil {
				return err
			}
			labels, err := l.ListEntryLabels()
			if err != nil {
				return err
			}
			for _, name := range labels {
				fmt.Println(name)
			}
			return nil
		},
	}
}

func conflictsCmd(open *opener) *cobra.Command {
	return &cobra.Command{
		Use:   "conflicts",
		Short: "list entries currently quarantined with a merge conflict",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := (*open)()
			if err != nil {
				return err
			}
			names, err := l.ListEntriesWithConflicts()
			if err != nil {
				return err
			}
			for _, name := range names {
				fmt.Println(name)
			}
			return nil
		},
	}
}

func resolveCmd(open *opener) *cobra.Command {
	var keepOriginal bool
	cmd := &cobra.Command{
		Use:   "resolve <name>",
		Short: "resolve a merge conflict for an entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := (*open)()
			if err != nil {
				return err
			}
			return l.Resolve(args[0], keepOriginal)
		},
	}
	cmd.Flags().BoolVar(&keepOriginal, "keep-original", true, "discard the incoming conflict instead of promoting it")
	return cmd
}

func exportCmd(open *opener) *cobra.Command {
	var algo string
	cmd := &cobra.Command{
		Use:   "export <path>",
		Short: "export the ledger to a checksummed, compressed archive file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := (*open)()
			if err != nil {
				return err
			}
			r, err := l.DocDump()
			if err != nil {
				return err
			}
			defer r.Close()

			var a archiveexport.Algorithm
			switch algo {
			case "zstd":
				a = archiveexport.Zstd
			case "snappy":
				a = archiveexport.Snappy
			default:
				return fmt.Errorf("unknown algorithm %q (want zstd or snappy)", algo)
			}
			return archiveexport.Export(r, args[0], a)
		},
	}
	cmd.Flags().StringVar(&algo, "algo", "zstd", "compression algorithm: zstd or snappy")
	return cmd
}

func genPwCmd() *cobra.Command {
	var length int
	cmd := &cobra.Command{
		Use:   "generate-password",
		Short: "generate a random password and score its strength",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := pwgen.Generate(length)
			if err != nil {
				return err
			}
			fmt.Printf("%s (score %d/4)\n", pw, pwgen.Score(pw))
			return nil
		},
	}
	cmd.Flags().IntVar(&length, "length", 20, "password length")
	return cmd
}

func pushCmd(open *opener) *cobra.Command {
	var relay, pw string
	cmd := &cobra.Command{
		Use:   "push",
		Short: "push the ledger's current state to a Strider relay",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := (*open)()
			if err != nil {
				return err
			}
			c := client.New(relay)
			pin, err := glue.Push(context.Background(), l, c, pw)
			if err != nil {
				return err
			}
			fmt.Println(pin)
			return nil
		},
	}
	cmd.Flags().StringVar(&relay, "relay", "http://localhost:8787", "Strider relay base URL")
	cmd.Flags().StringVar(&pw, "pw", "", "relay pull password")
	return cmd
}

func pullCmd(open *opener) *cobra.Command {
	var relay, pw string
	cmd := &cobra.Command{
		Use:   "pull <pin>",
		Short: "pull and merge a peer's ledger state from a Strider relay",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := (*open)()
			if err != nil {
				return err
			}
			c := client.New(relay)
			return glue.Pull(context.Background(), l, c, args[0], pw)
		},
	}
	cmd.Flags().StringVar(&relay, "relay", "http://localhost:8787", "Strider relay base URL")
	cmd.Flags().StringVar(&pw, "pw", "", "relay pull password")
	return cmd
}

func serveCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "run a Strider relay",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rl := server.New(server.LoadSettings())
			fmt.Printf("strider relay listening on %s\n", addr)
			return http.ListenAndServe(addr, rl.Router())
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8787", "address to listen on")
	return cmd
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
