// Package main is the storefront command-line client. It talks to the proxy,
// keeps the cart in a local storage file and offers an interactive shell for
// browsing, wishlist and checkout.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/atinyakov/storefront/internal/client/api"
	"github.com/atinyakov/storefront/internal/client/prompt"
	"github.com/atinyakov/storefront/internal/client/storage"
	"github.com/atinyakov/storefront/internal/client/store"
	"github.com/atinyakov/storefront/internal/logger"
	"github.com/atinyakov/storefront/internal/models"
)

var (
	version   string
	buildDate string
)

type globalOptions struct {
	baseURL  string
	storage  string
	caFile   string
	logLevel string
	timeout  time.Duration
}

// app holds the wired client for one invocation.
type app struct {
	api  *api.Client
	ls   *storage.LocalStorage
	sf   *store.Storefront
	log  *zap.Logger
	seen map[string]models.Product
}

func newApp(opts *globalOptions) (*app, error) {
	log := logger.New()
	if opts.logLevel != "" {
		if err := log.Init(opts.logLevel); err != nil {
			return nil, err
		}
	}

	hc, err := api.NewHTTPClient(opts.caFile, opts.timeout)
	if err != nil {
		return nil, fmt.Errorf("http client: %w", err)
	}
	client := api.New(opts.baseURL, hc, log.Log)

	ls := storage.New(opts.storage)
	if err := ls.Load(); err != nil {
		return nil, fmt.Errorf("load storage: %w", err)
	}

	sf := store.NewStorefront(
		store.NewSession(client, log.Log),
		store.NewWishlist(client, log.Log),
		store.NewCart(ls, log.Log),
	)
	return &app{api: client, ls: ls, sf: sf, log: log.Log, seen: map[string]models.Product{}}, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}
	root := &cobra.Command{
		Use:           "client",
		Short:         "Storefront command-line client",
		Version:       fmt.Sprintf("%s (built %s)", orNA(version), orNA(buildDate)),
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&opts.baseURL, "url", "http://localhost:8080", "proxy base URL")
	root.PersistentFlags().StringVar(&opts.storage, "storage", storage.DefaultFile, "path to the local storage file")
	root.PersistentFlags().StringVar(&opts.caFile, "ca", "", "CA certificate to trust for https")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "enable logging at this level")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 30*time.Second, "request timeout")

	root.AddCommand(
		newShellCmd(opts),
		newProductsCmd(opts),
		newRegisterCmd(opts),
		newResendOTPCmd(opts),
		newVerifyOTPCmd(opts),
	)
	return root
}

func newShellCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Start the interactive shell",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(opts)
			if err != nil {
				return err
			}
			a.sf.Sync(cmd.Context())
			a.repl(cmd.Context(), os.Stdin, cmd.OutOrStdout())
			return nil
		},
	}
}

func newProductsCmd(opts *globalOptions) *cobra.Command {
	var (
		page     int
		limit    int
		category string
		search   string
	)
	cmd := &cobra.Command{
		Use:   "products [slug]",
		Short: "List products, or show one product by slug",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(opts)
			if err != nil {
				return err
			}
			q := url.Values{}
			q.Set("page", strconv.Itoa(page))
			q.Set("limit", strconv.Itoa(limit))
			if category != "" {
				q.Set("category", category)
			}
			if search != "" {
				q.Set("search", search)
			}
			if len(args) == 1 {
				q = url.Values{"slug": {args[0]}}
			}
			return a.listProducts(cmd.Context(), cmd.OutOrStdout(), q, len(args) == 1)
		},
	}
	cmd.Flags().IntVar(&page, "page", 1, "page number")
	cmd.Flags().IntVar(&limit, "limit", 10, "products per page")
	cmd.Flags().StringVar(&category, "category", "", "filter by category")
	cmd.Flags().StringVar(&search, "search", "", "search term")
	return cmd
}

func newRegisterCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "register",
		Short: "Create an account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(opts)
			if err != nil {
				return err
			}
			return report(cmd, a.sf.Session.Register(cmd.Context(), prompt.Registration()))
		},
	}
}

func newResendOTPCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "resend-otp <email>",
		Short: "Send a new verification code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(opts)
			if err != nil {
				return err
			}
			return report(cmd, a.sf.Session.ResendOTP(cmd.Context(), args[0]))
		},
	}
}

func newVerifyOTPCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "verify-otp <email> <otp>",
		Short: "Verify an email address",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(opts)
			if err != nil {
				return err
			}
			return report(cmd, a.sf.Session.VerifyOTP(cmd.Context(), args[0], args[1]))
		},
	}
}

// report prints res and turns a failure into a command error.
func report(cmd *cobra.Command, res models.Result) error {
	if !res.Success {
		return fmt.Errorf("%s", res.Message)
	}
	fmt.Fprintln(cmd.OutOrStdout(), res.Message)
	return nil
}

func (a *app) listProducts(ctx context.Context, out io.Writer, q url.Values, raw bool) error {
	env, err := a.api.Products(ctx, q)
	if err != nil {
		return err
	}
	if !env.Success {
		return fmt.Errorf("%s", messageOr(env.Message, "failed to fetch products"))
	}
	if raw {
		var pretty any
		if err := json.Unmarshal(env.Data, &pretty); err != nil {
			return fmt.Errorf("decode product: %w", err)
		}
		b, _ := json.MarshalIndent(pretty, "", "  ")
		fmt.Fprintln(out, string(b))
		return nil
	}

	var products []models.Product
	if err := json.Unmarshal(env.Data, &products); err != nil {
		return fmt.Errorf("decode products: %w", err)
	}
	for _, p := range products {
		a.seen[p.ID] = p
		badge := ""
		if p.Badge != nil {
			badge = " [" + p.Badge.Text + "]"
		}
		price := "-"
		if p.Price != nil {
			price = strconv.FormatFloat(*p.Price, 'f', 2, 64)
		}
		stock := 0
		if p.StockQuantity != nil {
			stock = *p.StockQuantity
		}
		fmt.Fprintf(out, "%s  %-40s %10s  stock %d%s\n", p.ID, p.Title, price, stock, badge)
	}
	if pg := env.Pagination; pg != nil {
		fmt.Fprintf(out, "page %d of %d (%d products)\n", pg.CurrentPage, pg.LastPage, pg.Total)
	}
	return nil
}

// productRef converts a listed product into the snapshot a cart line needs.
func productRef(p models.Product) models.ProductRef {
	ref := models.ProductRef{ID: p.ID, Name: p.Title, SKU: p.MasterProductCode, Image: p.Image}
	if p.Price != nil {
		ref.SalePrice = *p.Price
		ref.Price = *p.Price
	}
	if p.OriginalPrice != nil {
		ref.Price = *p.OriginalPrice
	}
	if p.StockQuantity != nil {
		ref.Stock = *p.StockQuantity
	}
	return ref
}

func messageOr(msg, fallback string) string {
	if msg == "" {
		return fallback
	}
	return msg
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
