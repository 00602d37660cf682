package cli // import "streamlance.app/internal/cli"

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"streamlance.app/internal/model"
	"streamlance.app/internal/storage"
	"streamlance.app/internal/validator"
)

var errUserNotFound = errors.New("user not found")

var createUserCmd = cobra.Command{
	Use:   "create-user [email]",
	Short: "Create a user from an interactive terminal",
	Args:  cobra.MaximumNArgs(1),

	RunE: func(cmd *cobra.Command, args []string) error {
		email, password, err := askCredentials(cmd, firstArg(args))
		if err != nil {
			return err
		}
		return withStorage(
			func(ctx context.Context, store *storage.Storage) error {
				user, err := createUser(ctx, store, email, password)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "User #%d created!\n", user.ID)
				return nil
			})
	},
}

var resetPassCmd = cobra.Command{
	Use:   "reset-password email",
	Short: "Reset user password",
	Args:  cobra.ExactArgs(1),

	RunE: func(cmd *cobra.Command, args []string) error {
		email, password, err := askCredentials(cmd, args[0])
		if err != nil {
			return err
		} else if err := validator.ValidatePassword(password); err != nil {
			return err
		}

		return withStorage(
			func(ctx context.Context, store *storage.Storage) error {
				user, err := userByEmail(ctx, store, email)
				if err != nil {
					return err
				} else if err := store.UpdatePassword(ctx, user.ID, password); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Password changed!")
				return nil
			})
	},
}

var userActiveCmd = cobra.Command{
	Use:   "user-active email true|false",
	Short: "Enable or disable gig alerts of a user",
	Args:  cobra.ExactArgs(2),

	RunE: func(cmd *cobra.Command, args []string) error {
		active, err := strconv.ParseBool(args[1])
		if err != nil {
			return fmt.Errorf("invalid active flag %q: %w", args[1], err)
		}

		return withStorage(
			func(ctx context.Context, store *storage.Storage) error {
				user, err := userByEmail(ctx, store, args[0])
				if err != nil {
					return err
				} else if err := store.SetUserActive(ctx, user.ID, active); err != nil {
					return err
				}
				slog.Info("User updated", slog.Int64("user_id", user.ID),
					slog.Bool("active", active))
				return nil
			})
	},
}

var usersCmd = cobra.Command{
	Use:   "users",
	Short: "List users",
	Args:  cobra.ExactArgs(0),

	RunE: func(cmd *cobra.Command, args []string) error {
		return withStorage(
			func(ctx context.Context, store *storage.Storage) error {
				users, err := store.Users(ctx)
				if err != nil {
					return err
				}
				return printUsers(cmd.OutOrStdout(), users)
			})
	},
}

type userStore interface {
	validator.UserStore

	CreateUser(ctx context.Context, r *model.UserCreationRequest,
	) (*model.User, error)
}

func createUser(ctx context.Context, store userStore, email, password string,
) (*model.User, error) {
	r := model.UserCreationRequest{Email: email, Password: password}
	if err := validator.ValidateUserCreation(ctx, store, &r); err != nil {
		return nil, err
	}

	user, err := store.CreateUser(ctx, &r)
	if err != nil {
		return nil, err
	}
	slog.Info("Created new user",
		slog.String("email", user.Email),
		slog.Int64("user_id", user.ID))
	return user, nil
}

type userFinder interface {
	UserByEmail(ctx context.Context, email string) (*model.User, error)
}

func userByEmail(ctx context.Context, store userFinder, email string,
) (*model.User, error) {
	user, err := store.UserByEmail(ctx, email)
	if err != nil {
		return nil, err
	} else if user == nil {
		return nil, fmt.Errorf("%w: %q", errUserNotFound, email)
	}
	return user, nil
}

func printUsers(w io.Writer, users []*model.User) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tEMAIL\tACTIVE\tREGISTERED")
	for _, u := range users {
		fmt.Fprintf(tw, "%d\t%s\t%t\t%s\n", u.ID, u.Email, u.IsActive,
			u.RegisteredAt.UTC().Format(timeLayout))
	}
	return tw.Flush() //nolint:wrapcheck // stdout
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

var loginCmd = cobra.Command{
	Use:   "login email",
	Short: "Check credentials of a user",
	Args:  cobra.ExactArgs(1),

	RunE: func(cmd *cobra.Command, args []string) error {
		email, password, err := askCredentials(cmd, args[0])
		if err != nil {
			return err
		}
		return withStorage(
			func(ctx context.Context, store *storage.Storage) error {
				if err := store.CheckPassword(ctx, email, password); err != nil {
					return errors.New("invalid email or password")
				}
				user, err := userByEmail(ctx, store, email)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Login successful, user #%d\n",
					user.ID)
				return nil
			})
	},
}
