package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/arzan03/LibraryHub/internal/models"
	"github.com/arzan03/LibraryHub/internal/services"
)

type userAddFlags struct {
	email         string
	role          string
	firstName     string
	lastName      string
	passwordStdin bool
}

func newUserAddCmd(a *app) *cobra.Command {
	var f userAddFlags

	cmd := &cobra.Command{
		Use:   "useradd",
		Short: "Create an account with any role",
		Example: "  libraryhub useradd --email head@school.edu --role admin\n" +
			"  echo \"$PW\" | libraryhub useradd --email lib@school.edu --role librarian --password-stdin",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			role, ok := models.ParseRole(f.role)
			if !ok {
				return fmt.Errorf("invalid role %q: want student, librarian or admin", f.role)
			}

			password, err := readNewPassword(cmd.InOrStdin(), cmd.ErrOrStderr(), f.passwordStdin)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			st, err := openStore(ctx, a.cfg, a.logger)
			if err != nil {
				return err
			}
			defer st.Close()
			if err := st.Migrate(ctx); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}

			auth := services.NewAuthService(st, services.AuthConfig{
				Secret:     a.cfg.JWTSecret,
				TokenTTL:   a.cfg.JWTExpire,
				BcryptCost: a.cfg.BcryptRounds,
			})
			user, err := auth.CreateAccount(ctx, services.RegisterInput{
				Email:     f.email,
				Password:  password,
				FirstName: f.firstName,
				LastName:  f.lastName,
			}, role)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "created %s %s (id %d)\n", user.Role, user.Email, user.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&f.email, "email", "", "account email")
	cmd.Flags().StringVar(&f.role, "role", "", "student, librarian or admin")
	cmd.Flags().StringVar(&f.firstName, "first-name", "", "given name")
	cmd.Flags().StringVar(&f.lastName, "last-name", "", "family name")
	cmd.Flags().BoolVar(&f.passwordStdin, "password-stdin", false, "read the password from stdin instead of prompting")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("role")
	return cmd
}

// readNewPassword prompts twice on a terminal, or takes the first line of in.
func readNewPassword(in io.Reader, prompt io.Writer, fromStdin bool) (string, error) {
	if fromStdin {
		line, err := bufio.NewReader(in).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", fmt.Errorf("read password: %w", err)
		}
		return strings.TrimRight(line, "\r\n"), nil
	}

	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New("stdin is not a terminal: use --password-stdin")
	}

	fmt.Fprint(prompt, "Password: ")
	first, err := term.ReadPassword(fd)
	fmt.Fprintln(prompt)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	fmt.Fprint(prompt, "Confirm password: ")
	second, err := term.ReadPassword(fd)
	fmt.Fprintln(prompt)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	if string(first) != string(second) {
		return "", errors.New("passwords do not match")
	}
	return string(first), nil
}
