package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dmitrijs2005/idverifier/internal/server/auth"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// Terminal seams, replaced in tests.
var (
	readPassword = term.ReadPassword
	isTerminal   = term.IsTerminal
)

var errEmptyPassword = errors.New("password must not be empty")

func newHashPasswordCommand(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password",
		Short: "Print a digest suitable for IDV_ADMIN_PASSWORD_HASH",
		Long: `Reads a password from the terminal without echo (or one line from
standard input when it is not a terminal) and prints its digest using the
configured password algorithm.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, _, err := o.load()
			if err != nil {
				return err
			}

			pw, err := readSecret(cmd.InOrStdin(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			hasher, err := auth.NewPasswordHasher(c.PasswordAlgorithm, c.PasswordCost)
			if err != nil {
				return err
			}
			digest, err := hasher.Hash(pw)
			if err != nil {
				return err
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), digest)
			return err
		},
	}
}

func readSecret(in io.Reader, prompt io.Writer) (string, error) {
	var pw string
	if f, ok := in.(*os.File); ok && isTerminal(int(f.Fd())) {
		fmt.Fprint(prompt, "Enter password: ")
		b, err := readPassword(int(f.Fd()))
		fmt.Fprintln(prompt)
		if err != nil {
			return "", err
		}
		pw = string(b)
	} else {
		line, err := bufio.NewReader(in).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", err
		}
		pw = strings.TrimRight(line, "\r\n")
	}

	if pw == "" {
		return "", errEmptyPassword
	}
	return pw, nil
}
