package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func (a *App) loginCmd() *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with your utexas.edu account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if email == "" {
				email = a.cfg.GetString(keyEmail)
			}
			if password == "" {
				password = a.readPassword(cmd)
			}
			if email == "" || password == "" {
				return errors.New("--email and --password are required")
			}
			res, err := a.client().Login(cmd.Context(), email, password)
			if err != nil {
				return err
			}
			if err := a.saveSession(email, res.Token); err != nil {
				return err
			}
			a.logger.Debug("session saved", "file", a.cfgFile)
			fmt.Fprintf(a.out, "Signed in as %s\n", res.User.Name)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", os.Getenv("VIBECTL_PASSWORD"), "account password")
	return cmd
}

// signupCmd walks through send-otp, verify-otp and register. The code is
// read from the command's stdin.
func (a *App) signupCmd() *cobra.Command {
	var name, email, password string
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account with an emailed verification code",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if password == "" {
				password = a.readPassword(cmd)
			}
			if name == "" || email == "" || password == "" {
				return errors.New("--name, --email and --password are required")
			}
			ctx := cmd.Context()
			c := a.client()
			if err := c.SendOTP(ctx, email); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Verification code sent to %s\n", email)

			code, err := prompt(cmd.InOrStdin(), a.out, "Code: ")
			if err != nil {
				return err
			}
			if err := c.VerifyOTP(ctx, email, code); err != nil {
				return err
			}
			res, err := c.Register(ctx, name, email, password)
			if err != nil {
				return err
			}
			if err := a.saveSession(email, res.Token); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Welcome, %s!\n", res.User.Name)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&email, "email", "", "utexas.edu email")
	cmd.Flags().StringVar(&password, "password", os.Getenv("VIBECTL_PASSWORD"), "password, at least 8 characters")
	return cmd
}

func (a *App) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the saved session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.cfg.GetString(keyToken) == "" {
				fmt.Fprintln(a.out, "Not signed in.")
				return nil
			}
			// Revoke server side first; a dead token is fine to drop locally.
			if err := a.client().Logout(cmd.Context()); err != nil {
				a.logger.Warn("server logout failed", "err", err)
			}
			if err := a.saveSession(a.cfg.GetString(keyEmail), ""); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "Signed out.")
			return nil
		},
	}
}

// readPassword asks without echo when stdin is a terminal, and returns ""
// otherwise.
func (a *App) readPassword(cmd *cobra.Command) string {
	f, ok := cmd.InOrStdin().(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return ""
	}
	fmt.Fprint(a.out, "Password: ")
	pw, err := term.ReadPassword(int(f.Fd()))
	fmt.Fprintln(a.out)
	if err != nil {
		a.logger.Debug("password prompt failed", "err", err)
		return ""
	}
	return string(pw)
}

func prompt(in io.Reader, out io.Writer, label string) (string, error) {
	fmt.Fprint(out, label)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return "", errors.New("no code entered")
	}
	return line, nil
}
