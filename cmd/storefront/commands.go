package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"

	"storefront/pkg/storefront"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// newRootCmd 命令行版店铺客户端，参数可由 STOREFRONT_* 环境变量提供
func newRootCmd() *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("storefront")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	root := &cobra.Command{
		Use:          "storefront",
		Short:        "Storefront client: cart, checkout and payment confirmation",
		SilenceUsage: true,
	}

	home, _ := os.UserHomeDir()
	flags := root.PersistentFlags()
	flags.String("api", "http://localhost:8080", "storefront API base URL")
	flags.String("token", "", "bearer token for authenticated endpoints")
	flags.String("origin", "http://localhost:3000", "site origin used for payment redirect URLs")
	flags.String("cart", filepath.Join(home, ".storefront", "cart.db"), "cart database file")
	_ = v.BindPFlags(flags)

	root.AddCommand(newCartCmd(v), newCheckoutCmd(v), newPollCmd(v))
	return root
}

func newClient(v *viper.Viper) *storefront.Client {
	return storefront.NewClient(v.GetString("api"), storefront.WithToken(v.GetString("token")))
}

func openCart(v *viper.Viper) (*storefront.CartStore, error) {
	path := v.GetString("cart")
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, err
	}
	return storefront.OpenCartStore(path)
}

func newCartCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cart",
		Short: "Manage the local cart",
	}

	var (
		qty      int64
		product  string
		variant  string
		currency string
	)
	add := &cobra.Command{
		Use:   "add PRICE_ID PRICE_IN_CENTS",
		Short: "Add a variant to the cart",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			price, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil || price < 0 {
				return fmt.Errorf("invalid price %q: expected integer cents", args[1])
			}
			cart, err := openCart(v)
			if err != nil {
				return err
			}
			defer cart.Close()

			if err := cart.Add(storefront.CartItem{
				VariantID:    args[0],
				ProductTitle: product,
				VariantTitle: variant,
				PriceInCents: price,
				Currency:     currency,
				Quantity:     qty,
			}); err != nil {
				return err
			}
			return printCart(cmd.OutOrStdout(), cart.Snapshot())
		},
	}
	add.Flags().Int64VarP(&qty, "quantity", "q", 1, "units to add")
	add.Flags().StringVar(&product, "product", "", "product title")
	add.Flags().StringVar(&variant, "variant", "Default", "variant title")
	add.Flags().StringVar(&currency, "currency", "eur", "price currency")

	remove := &cobra.Command{
		Use:   "remove PRICE_ID",
		Short: "Remove a variant from the cart",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cart, err := openCart(v)
			if err != nil {
				return err
			}
			defer cart.Close()
			if err := cart.Remove(args[0]); err != nil {
				return err
			}
			return printCart(cmd.OutOrStdout(), cart.Snapshot())
		},
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Print cart contents and totals",
		RunE: func(cmd *cobra.Command, args []string) error {
			cart, err := openCart(v)
			if err != nil {
				return err
			}
			defer cart.Close()
			return printCart(cmd.OutOrStdout(), cart.Snapshot())
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Empty the cart",
		RunE: func(cmd *cobra.Command, args []string) error {
			cart, err := openCart(v)
			if err != nil {
				return err
			}
			defer cart.Close()
			return cart.Clear()
		},
	}

	cmd.AddCommand(add, remove, show, clearCmd)
	return cmd
}

func newCheckoutCmd(v *viper.Viper) *cobra.Command {
	var email, name string
	cmd := &cobra.Command{
		Use:   "checkout",
		Short: "Place an order for the cart and print the payment URL",
		RunE: func(cmd *cobra.Command, args []string) error {
			if email == "" {
				return fmt.Errorf("--email is required")
			}
			cart, err := openCart(v)
			if err != nil {
				return err
			}
			defer cart.Close()

			out := cmd.OutOrStdout()
			client := newClient(v)
			nav := storefront.NavigatorFunc(func(url string) error {
				_, err := fmt.Fprintf(out, "Continue to payment: %s\n", url)
				return err
			})
			redirector := storefront.NewRedirector(client, client, nav, v.GetString("origin"))

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			session, err := redirector.Checkout(ctx, storefront.CheckoutDraft{
				Email: email,
				Name:  name,
				Items: cart.Snapshot().Items,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Session: %s\n", session.SessionID)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "customer email")
	cmd.Flags().StringVar(&name, "name", "", "customer name")
	return cmd
}

func newPollCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "poll ORDER_ID",
		Short: "Wait for payment confirmation of an order",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var orderID string
			if len(args) == 1 {
				orderID = args[0]
			}
			cart, err := openCart(v)
			if err != nil {
				return err
			}
			defer cart.Close()

			out := cmd.OutOrStdout()
			notifier := storefront.NotifierFunc(func(n storefront.Notice) {
				fmt.Fprintf(out, "%s: %s\n", n.Title, n.Description)
			})
			poller := storefront.NewPoller(newClient(v), cart, notifier,
				storefront.WithPollSchedule(v.GetInt("poll-attempts"), v.GetDuration("poll-interval")))

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			res := poller.Run(ctx, orderID)
			fmt.Fprintf(out, "State: %s (fetches=%d, confirmed=%t)\n", res.State, res.Fetches, res.Confirmed)
			return res.Err
		},
	}
	cmd.Flags().Int("poll-attempts", storefront.DefaultPollAttempts, "status checks after the first fetch")
	cmd.Flags().Duration("poll-interval", storefront.DefaultPollInterval, "delay between status checks")
	_ = v.BindPFlags(cmd.Flags())
	return cmd
}

func printCart(w io.Writer, cart storefront.Cart) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(cart)
}
