package main

import (
	"errors"
	"fmt"

	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"

	"github.com/five82/vininsight/internal/app"
	"github.com/five82/vininsight/internal/autodev"
	"github.com/five82/vininsight/internal/credential"
	"github.com/five82/vininsight/internal/view"
)

func newDecodeCommand(opts *rootOptions) *cobra.Command {
	var raw bool
	cmd := &cobra.Command{
		Use:   "decode <vin>",
		Short: "Decode a VIN with the stored API key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := opts.build(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = deps.Close() }()

			apiKey, err := storedKey(cmd, deps)
			if err != nil {
				return err
			}
			if err := autodev.Validate(args[0], apiKey); err != nil {
				return err
			}
			res, err := deps.Client.Decode(cmd.Context(), args[0], apiKey)
			if err != nil {
				deps.Log.Warn("decode failed", "vin", args[0], err)
				return errors.New(view.DecodeFailed(err).String())
			}

			out := cmd.OutOrStdout()
			if raw {
				_, err = fmt.Fprintln(out, res.Pretty())
				return err
			}
			table := uitable.New()
			table.MaxColWidth = 60
			table.Wrap = true
			table.AddRow("FIELD", "VALUE")
			for _, f := range res.Fields {
				table.AddRow(f.Key, f.Value)
			}
			_, err = fmt.Fprintln(out, table)
			return err
		},
	}
	cmd.Flags().BoolVar(&raw, "raw", false, "Print the full response as indented JSON.")
	return cmd
}

func newTestConnectionCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "test-connection",
		Short: "Decode a sample VIN to check the API key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			deps, err := opts.build(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = deps.Close() }()

			apiKey, err := storedKey(cmd, deps)
			if err != nil {
				return err
			}
			report, err := deps.Client.TestConnection(cmd.Context(), apiKey)
			n := view.ConnectionTested(report, err)
			if err != nil {
				return errors.New(n.String())
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s\n\n%s\n", n.Title, n.Message)
			return err
		},
	}
}

func storedKey(cmd *cobra.Command, deps *app.Deps) (string, error) {
	key, _, err := deps.Credentials.Get(cmd.Context(), credential.APIKeyName)
	if err != nil {
		return "", fmt.Errorf("read API key: %w", err)
	}
	return key, nil
}
