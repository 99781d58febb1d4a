package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/spf13/cobra"

	"colorsnap/src/config"
	"colorsnap/src/history"
	"colorsnap/src/singleinstance"
)

type cliOptions struct {
	jsonOutput  bool
	verbose     bool
	historyPath string
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	return runWithArgs(os.Args)
}

func runWithArgs(args []string) error {
	opts := &cliOptions{}
	cmd := newRootCmd(opts)
	if len(args) > 1 {
		cmd.SetArgs(args[1:])
	}
	return cmd.Execute()
}

func newRootCmd(opts *cliOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "colorsnap-cli",
		Short:         "Inspect and drive a running ColorSnap resident",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if !opts.verbose {
				log.SetOutput(io.Discard)
			} else {
				log.SetOutput(os.Stderr)
			}
		},
	}

	cmd.PersistentFlags().BoolVar(&opts.jsonOutput, "json", false, "Output results as JSON")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Verbose output to stderr")
	cmd.PersistentFlags().StringVar(&opts.historyPath, "history-path", "", "Path to the history file (highest precedence)")

	cmd.AddCommand(newPickCmd(opts))
	cmd.AddCommand(newStatusCmd(opts))
	cmd.AddCommand(newHistoryCmd(opts))
	return cmd
}

func newStatusCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check whether a ColorSnap resident is running",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
			defer cancel()

			port, found := singleinstance.DetectResidentPort(ctx)
			if opts.jsonOutput {
				return json.NewEncoder(os.Stdout).Encode(map[string]any{
					"running": found,
					"port":    port,
				})
			}
			if !found {
				start, end := singleinstance.GetPortRangeForDebug()
				fmt.Printf("No resident found on ports %d-%d\n", start, end)
				return nil
			}
			fmt.Printf("Resident running on 127.0.0.1:%d\n", port)
			return nil
		},
	}
}

func newPickCmd(opts *cliOptions) *cobra.Command {
	var copyToClipboard bool
	cmd := &cobra.Command{
		Use:   "pick",
		Short: "Ask the resident to pick a color (waits for confirm)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
			defer cancel()

			client := singleinstance.NewClient()
			delegated, hex, err := client.TryPickOnce(ctx, !copyToClipboard)
			if err != nil {
				return err
			}
			if !delegated {
				return fmt.Errorf("no ColorSnap resident found; start the app first")
			}
			if copyToClipboard {
				fmt.Fprintln(os.Stderr, "Color copied to clipboard by resident")
				return nil
			}
			if opts.jsonOutput {
				return json.NewEncoder(os.Stdout).Encode(map[string]string{"hex": hex})
			}
			fmt.Println(hex)
			return nil
		},
	}
	cmd.Flags().BoolVar(&copyToClipboard, "copy", false, "Have the resident copy the color instead of printing it")
	return cmd
}

func newHistoryCmd(opts *cliOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect and edit the saved color history",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "Print saved colors, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(opts)
			if err != nil {
				return err
			}
			entries := store.Entries()
			if opts.jsonOutput {
				return json.NewEncoder(os.Stdout).Encode(entries)
			}
			for _, e := range entries {
				ts := time.UnixMilli(e.Timestamp).Format(time.RFC3339)
				label := e.Label
				if label == "" {
					label = "-"
				}
				fmt.Printf("%s  %s  rgb(%d,%d,%d)  %s  %s\n", e.ID, e.Hex, e.RGB[0], e.RGB[1], e.RGB[2], ts, label)
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "remove <id>",
		Short: "Delete one entry by id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(opts)
			if err != nil {
				return err
			}
			return store.Remove(args[0])
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "relabel <id> <label>",
		Short: "Set the label on one entry",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(opts)
			if err != nil {
				return err
			}
			return store.Relabel(args[0], args[1])
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Delete all saved colors",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(opts)
			if err != nil {
				return err
			}
			return store.Clear()
		},
	})

	return cmd
}

func openStore(opts *cliOptions) (*history.Store, error) {
	cfg, err := config.LoadWithOptions(config.LoadOptions{HistoryPathOverride: opts.historyPath})
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return history.Open(cfg.HistoryPath)
}
