package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/five82/vininsight/internal/credential"
	"github.com/five82/vininsight/internal/view"
)

func newKeyCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "key",
		Short: "Manage the stored auto.dev API key",
	}
	cmd.AddCommand(newKeySetCommand(opts), newKeyClearCommand(opts), newKeyShowCommand(opts))
	return cmd
}

func newKeySetCommand(opts *rootOptions) *cobra.Command {
	var value string
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Store the API key, prompting when --value is not given",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("value") {
				if _, err := fmt.Fprint(cmd.ErrOrStderr(), "API key: "); err != nil {
					return err
				}
				b, err := readPassword(int(os.Stdin.Fd()))
				fmt.Fprintln(cmd.ErrOrStderr())
				if err != nil {
					return fmt.Errorf("read API key: %w", err)
				}
				value = string(b)
			}
			value = strings.TrimSpace(value)
			if value == "" {
				return errors.New("API key is empty; use 'vininsight key clear' to remove it")
			}

			deps, err := opts.build(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = deps.Close() }()

			if err := deps.Credentials.Set(cmd.Context(), credential.APIKeyName, value); err != nil {
				return errors.New(view.StoreFailed("save", err).String())
			}
			deps.Log.Info("api key stored", "backend", deps.Config.CredentialBackend)
			_, err = fmt.Fprintln(cmd.OutOrStdout(), view.KeySaved().Message)
			return err
		},
	}
	cmd.Flags().StringVar(&value, "value", "", "API key to store (visible in shell history).")
	return cmd
}

func newKeyClearCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove the stored API key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			deps, err := opts.build(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = deps.Close() }()

			if err := deps.Credentials.Remove(cmd.Context(), credential.APIKeyName); err != nil {
				return errors.New(view.StoreFailed("clear", err).String())
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), view.KeyCleared().Message)
			return err
		},
	}
}

func newKeyShowCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the stored API key masked",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			deps, err := opts.build(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = deps.Close() }()

			key, ok, err := deps.Credentials.Get(cmd.Context(), credential.APIKeyName)
			if err != nil {
				return fmt.Errorf("read API key: %w", err)
			}
			if !ok || key == "" {
				_, err = fmt.Fprintln(cmd.OutOrStdout(), "No API key stored")
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), view.Mask(key))
			return err
		},
	}
}
