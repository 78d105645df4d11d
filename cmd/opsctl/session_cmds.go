package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/MrEthical07/opsauth"
)

var errNotLoggedIn = errors.New("not logged in")

type credentialFlags struct {
	email         string
	password      string
	passwordStdin bool
}

func (c *credentialFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&c.email, "email", "", "account email")
	cmd.Flags().StringVar(&c.password, "password", "", "account password")
	cmd.Flags().BoolVar(&c.passwordStdin, "password-stdin", false, "read the password from stdin")
	_ = cmd.MarkFlagRequired("email")
	cmd.MarkFlagsMutuallyExclusive("password", "password-stdin")
}

func (c *credentialFlags) resolvePassword(in io.Reader) (string, error) {
	if !c.passwordStdin {
		return c.password, nil
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func loginCmd(opts *globalOptions) *cobra.Command {
	creds := &credentialFlags{}
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and save the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pass, err := creds.resolvePassword(cmd.InOrStdin())
			if err != nil {
				return err
			}
			m, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer m.Teardown()

			if !m.Login(cmd.Context(), creds.email, pass) {
				return errors.New(m.LastError())
			}
			user, _ := m.User()
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s (%s)\n", user.Email, user.Role)
			return nil
		},
	}
	creds.register(cmd)
	return cmd
}

func logoutCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the saved session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer m.Teardown()

			m.Logout(cmd.Context())
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}

func registerCmd(opts *globalOptions) *cobra.Command {
	creds := &credentialFlags{}
	var name string
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create a passenger account",
		Long:  "Create a passenger account. Self-registered accounts are always passengers; log in afterwards.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pass, err := creds.resolvePassword(cmd.InOrStdin())
			if err != nil {
				return err
			}
			m, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer m.Teardown()

			req := opsauth.RegisterRequest{Email: creds.email, Password: pass, Name: name}
			if !m.Register(cmd.Context(), req) {
				return errors.New(m.LastError())
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Registered %s as %s\n", strings.TrimSpace(creds.email), opsauth.RolePassenger)
			return nil
		},
	}
	creds.register(cmd)
	cmd.Flags().StringVar(&name, "name", "", "display name")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func whoamiCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer m.Teardown()

			s, ok := m.Current()
			if !ok {
				return errNotLoggedIn
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "email:   %s\n", s.User.Email)
			fmt.Fprintf(out, "name:    %s\n", s.User.Name)
			fmt.Fprintf(out, "role:    %s\n", s.User.Role)
			fmt.Fprintf(out, "id:      %s\n", s.User.ID)
			if !s.ExpiresAt.IsZero() {
				fmt.Fprintf(out, "expires: %s\n", s.ExpiresAt.Local().Format(time.RFC3339))
			}
			return nil
		},
	}
}
