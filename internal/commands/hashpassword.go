package commands

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/klabast/wb-services/habit-tracker/internal/app"
	"github.com/klabast/wb-services/habit-tracker/internal/config"
)

var errInterrupted = errors.New("interrupted")

func hashPasswordCmd(v *viper.Viper) *cobra.Command {
	var overwrite, insecureUnmask bool

	cmd := &cobra.Command{
		Use:   "hash-password",
		Short: "Create the auth file with a hashed password (Argon2id)",
		Long: `Creates the auth file guarding the web UI and JSON API.

The file location is server.auth_file (env HABIT_SERVER_AUTH_FILE),
resolved against the data directory. Default: ./auth.secret`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadFrom(v)
			if err != nil {
				return err
			}

			in := bufio.NewReader(cmd.InOrStdin())
			out := cmd.OutOrStdout()

			fmt.Fprint(out, "Enter username: ")
			var username string
			if _, err := fmt.Fscanln(in, &username); err != nil {
				return fmt.Errorf("reading username: %w", err)
			}
			if username == "" {
				return errors.New("username cannot be empty")
			}

			var password, passwordConfirm string
			if insecureUnmask || !isTerminal(cmd.InOrStdin()) {
				if insecureUnmask {
					fmt.Fprintln(cmd.ErrOrStderr(), "⚠️  WARNING: Password will be visible on screen!")
				}
				fmt.Fprint(out, "Enter password:   ")
				if _, err := fmt.Fscanln(in, &password); err != nil {
					return fmt.Errorf("reading password: %w", err)
				}
				fmt.Fprint(out, "Confirm password: ")
				if _, err := fmt.Fscanln(in, &passwordConfirm); err != nil {
					return fmt.Errorf("reading password confirmation: %w", err)
				}
			} else {
				if password, err = readPasswordWithMask(out, "Enter password:   "); err != nil {
					return err
				}
				if passwordConfirm, err = readPasswordWithMask(out, "Confirm password: "); err != nil {
					return err
				}
			}

			if password == "" {
				return errors.New("password cannot be empty")
			}
			if password != passwordConfirm {
				return errors.New("passwords do not match")
			}

			return app.CreateAuthFile(cfg.AuthFilePath(), username, password, overwrite, in, out)
		},
	}

	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing auth file without asking")
	cmd.Flags().BoolVar(&insecureUnmask, "insecure-unmask-password", false, "Show password as plain text (INSECURE!)")
	return cmd
}

func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// readPasswordWithMask reads password input from the terminal and displays asterisks
func readPasswordWithMask(out io.Writer, prompt string) (string, error) {
	fmt.Fprint(out, prompt)
	fd := int(os.Stdin.Fd())

	// Set terminal to raw mode, restoring the original state afterwards
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		// Fallback to hidden input
		password, err := term.ReadPassword(fd)
		fmt.Fprintln(out)
		return string(password), err
	}
	defer term.Restore(fd, oldState)

	var password []byte
	reader := bufio.NewReader(os.Stdin)

	for {
		char, _, err := reader.ReadRune()
		if err != nil {
			break
		}

		switch char {
		case '\n', '\r': // Enter key
			fmt.Fprint(out, "\r\n")
			return string(password), nil
		case 127, 8: // Backspace or Delete
			if len(password) > 0 {
				password = password[:len(password)-1]
				// Clear the asterisk: backspace, space, backspace
				fmt.Fprint(out, "\b \b")
			}
		case 3: // Ctrl+C
			fmt.Fprint(out, "\r\n")
			return "", errInterrupted
		default:
			// Only accept printable characters
			if char >= 32 && char <= 126 {
				password = append(password, byte(char))
				fmt.Fprint(out, "*")
			}
		}
	}

	fmt.Fprint(out, "\r\n")
	return string(password), nil
}
