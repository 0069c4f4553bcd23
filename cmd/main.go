package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"alphaboutique/internal/domain"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "alpha",
		Short:         "Alpha Boutique client state: session, cart and theme",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.AddCommand(newServeCmd(), newSessionCmd(), newCartCmd(), newThemeCmd())
	return root
}

// withApp builds the app for one command and always drains the write
// queue afterwards, so mutations made by the command reach storage.
func withApp(fn func(ctx context.Context, a *app, out io.Writer) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) (err error) {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer func() {
			if cerr := a.close(); cerr != nil && err == nil {
				err = cerr
			}
		}()
		return fn(cmd.Context(), a, cmd.OutOrStdout())
	}
}

func printJSON(out io.Writer, v interface{}) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the state API, the live socket and metrics",
		Args:  cobra.NoArgs,
		RunE: withApp(func(ctx context.Context, a *app, _ io.Writer) error {
			a.logger.Info("Starting web server",
				zap.String("address", a.cfg.GetServerAddress()),
				zap.String("portal", a.cfg.Portal),
			)
			if err := a.webHandler().StartWebServer(ctx); err != nil {
				a.logger.Error("Web server failed", zap.Error(err))
				return err
			}
			a.logger.Info("Application stopped successfully")
			return nil
		}),
	}
}

// ===== SESSION =====

func newSessionCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "session", Short: "Inspect or change the signed in user"}

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the current session",
		Args:  cobra.NoArgs,
		RunE: withApp(func(_ context.Context, a *app, out io.Writer) error {
			return printJSON(out, a.stores.Session.Get())
		}),
	}

	var email, password string
	login := &cobra.Command{
		Use:   "login",
		Short: "Sign in against the backend and persist the session",
		Args:  cobra.NoArgs,
		RunE: withApp(func(ctx context.Context, a *app, out io.Writer) error {
			if _, err := a.services.Auth.Login(ctx, email, password); err != nil {
				return err
			}
			return printJSON(out, a.stores.Session.Get())
		}),
	}
	login.Flags().StringVar(&email, "email", "", "account email")
	login.Flags().StringVar(&password, "password", "", "account password")

	logout := &cobra.Command{
		Use:   "logout",
		Short: "Forget the signed in user; the cart is kept",
		Args:  cobra.NoArgs,
		RunE: withApp(func(_ context.Context, a *app, out io.Writer) error {
			a.services.Auth.Logout()
			return printJSON(out, a.stores.Session.Get())
		}),
	}

	var name, phone, dob, altContact string
	update := &cobra.Command{
		Use:   "update",
		Short: "Change profile fields of the signed in user",
		Args:  cobra.NoArgs,
	}
	update.Flags().StringVar(&name, "name", "", "display name")
	update.Flags().StringVar(&phone, "phone", "", "phone number")
	update.Flags().StringVar(&dob, "dob", "", "date of birth")
	update.Flags().StringVar(&altContact, "alt-contact", "", "alternative contact")
	update.RunE = withApp(func(_ context.Context, a *app, out io.Writer) error {
		var u domain.ProfileUpdate
		flags := update.Flags()
		if flags.Changed("name") {
			u.Name = domain.StringPtr(name)
		}
		if flags.Changed("phone") {
			u.Phone = domain.StringPtr(phone)
		}
		if flags.Changed("dob") {
			u.DateOfBirth = domain.StringPtr(dob)
		}
		if flags.Changed("alt-contact") {
			u.AltContact = domain.StringPtr(altContact)
		}
		profile, err := a.services.Auth.UpdateProfile(u)
		if err != nil {
			return err
		}
		return printJSON(out, profile)
	})

	cmd.AddCommand(show, login, logout, update)
	return cmd
}

// ===== CART =====

func newCartCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "cart", Short: "Inspect or change the persisted cart"}

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the cart with totals",
		Args:  cobra.NoArgs,
		RunE: withApp(func(_ context.Context, a *app, out io.Writer) error {
			return printJSON(out, a.stores.Cart.State())
		}),
	}

	var product domain.CartProduct
	add := &cobra.Command{
		Use:   "add <product-id>",
		Short: "Add one unit of a product",
		Args:  cobra.ExactArgs(1),
	}
	add.Flags().StringVar(&product.Name, "name", "", "product name")
	add.Flags().StringVar(&product.Price, "price", "", `display price, e.g. "Ksh 15,000"`)
	add.Flags().StringVar(&product.Image, "image", "", "image url")
	add.RunE = func(cmd *cobra.Command, args []string) error {
		product.ID = args[0]
		return withApp(func(_ context.Context, a *app, out io.Writer) error {
			a.stores.Cart.AddToCart(product)
			return printJSON(out, a.stores.Cart.State())
		})(cmd, args)
	}

	remove := &cobra.Command{
		Use:   "remove <product-id>",
		Short: "Remove a line from the cart",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(_ context.Context, a *app, out io.Writer) error {
				a.stores.Cart.RemoveFromCart(args[0])
				return printJSON(out, a.stores.Cart.State())
			})(cmd, args)
		},
	}

	qty := &cobra.Command{
		Use:   "qty <product-id> <quantity>",
		Short: "Set the quantity of a line; 0 removes it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			quantity, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("quantity %q: %w", args[1], err)
			}
			return withApp(func(_ context.Context, a *app, out io.Writer) error {
				a.stores.Cart.UpdateQuantity(args[0], quantity)
				return printJSON(out, a.stores.Cart.State())
			})(cmd, args)
		},
	}

	clear := &cobra.Command{
		Use:   "clear",
		Short: "Empty the cart",
		Args:  cobra.NoArgs,
		RunE: withApp(func(_ context.Context, a *app, out io.Writer) error {
			a.stores.Cart.ClearCart()
			return printJSON(out, a.stores.Cart.State())
		}),
	}

	cmd.AddCommand(show, add, remove, qty, clear)
	return cmd
}

// ===== THEME =====

func newThemeCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "theme", Short: "Inspect or change the theme preference"}

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the preference and the scheme it resolves to",
		Args:  cobra.NoArgs,
		RunE: withApp(func(_ context.Context, a *app, out io.Writer) error {
			return printJSON(out, a.stores.Theme.State())
		}),
	}

	set := &cobra.Command{
		Use:       "set <light|dark|system>",
		Short:     "Persist a new theme preference",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{string(domain.ThemeLight), string(domain.ThemeDark), string(domain.ThemeSystem)},
		RunE: func(cmd *cobra.Command, args []string) error {
			pref, err := domain.ParseThemePreference(args[0])
			if err != nil {
				return err
			}
			return withApp(func(ctx context.Context, a *app, out io.Writer) error {
				if err := a.stores.Theme.SetThemePreference(ctx, pref); err != nil {
					return err
				}
				return printJSON(out, a.stores.Theme.State())
			})(cmd, args)
		},
	}

	cmd.AddCommand(show, set)
	return cmd
}
