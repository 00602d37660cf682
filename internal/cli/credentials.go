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

// askCredentials reads an email and a password from stdin of cmd. The email
// isn't asked if it's already known. The password isn't echoed if stdin is a
// terminal.
func askCredentials(cmd *cobra.Command, email string,
) (string, string, error) {
	in, out := cmd.InOrStdin(), cmd.OutOrStdout()
	r := bufio.NewReader(in)

	if email == "" {
		fmt.Fprint(out, "Email: ")
		s, err := readLine(r)
		if err != nil {
			return "", "", fmt.Errorf("unable read email: %w", err)
		}
		email = s
	}

	fmt.Fprint(out, "Password: ")
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(out)
		if err != nil {
			return "", "", fmt.Errorf("unable read password: %w", err)
		}
		return email, string(b), nil
	}

	password, err := readLine(r)
	if err != nil {
		return "", "", fmt.Errorf("unable read password: %w", err)
	}
	return email, password, nil
}

func readLine(r *bufio.Reader) (string, error) {
	s, err := r.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && s != "") {
		return "", err //nolint:wrapcheck // wrapped by caller
	}
	return strings.TrimRight(s, "\r\n"), nil
}
