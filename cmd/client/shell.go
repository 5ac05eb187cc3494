package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"

	"github.com/atinyakov/storefront/internal/client/prompt"
	"github.com/atinyakov/storefront/internal/client/store"
	"github.com/atinyakov/storefront/internal/models"
)

const shellHelp = `Available commands:
  help                      show this help
  login | logout | whoami   session
  products [page]           list products
  wishlist                  show the wishlist
  wish <productId>          add or remove a product from the wishlist
  cart                      show the cart
  add <productId> [qty]     add a listed product to the cart
  qty <lineId> <n>          change a cart line quantity
  remove <lineId>           remove a cart line
  clear                     empty the cart
  addresses                 list saved addresses
  address-add               save a new address
  address-edit <id>         replace a saved address
  address-delete <id>       delete a saved address
  address-default <id>      make a saved address the default
  checkout                  place an order
  exit`

// repl runs the interactive shell loop until "exit" or end of input.
func (a *app) repl(ctx context.Context, in io.Reader, out io.Writer) {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "storefront> ")
		if !scanner.Scan() {
			break
		}
		args := strings.Fields(scanner.Text())
		if len(args) == 0 {
			continue
		}
		if args[0] == "exit" {
			fmt.Fprintln(out, "Bye")
			return
		}
		if err := a.dispatch(ctx, out, args); err != nil {
			fmt.Fprintln(out, "Error:", err)
		}
	}
}

func (a *app) dispatch(ctx context.Context, out io.Writer, args []string) error {
	switch args[0] {
	case "help":
		fmt.Fprintln(out, shellHelp)
	case "login":
		email, password := prompt.Credentials()
		printResult(out, a.sf.Session.Login(ctx, email, password))
	case "logout":
		printResult(out, a.sf.Session.Logout(ctx))
	case "whoami":
		id := a.sf.Session.Identity()
		if id == nil {
			fmt.Fprintln(out, "Not logged in")
			return nil
		}
		fmt.Fprintf(out, "%s <%s> (%s)\n", id.Name, id.Email, id.Role)
	case "products":
		q := url.Values{"limit": {"10"}}
		if len(args) > 1 {
			q.Set("page", args[1])
		}
		return a.listProducts(ctx, out, q, false)
	case "wishlist":
		a.printWishlist(out)
	case "wish":
		if len(args) < 2 {
			return usage("wish <productId>")
		}
		printResult(out, a.sf.ToggleWishlist(ctx, args[1]))
	case "cart":
		a.printCart(out)
	case "add":
		return a.addToCart(out, args[1:])
	case "qty":
		if len(args) < 3 {
			return usage("qty <lineId> <n>")
		}
		n, err := strconv.Atoi(args[2])
		if err != nil {
			return usage("qty <lineId> <n>")
		}
		if !a.sf.Cart.UpdateQuantity(args[1], n) {
			fmt.Fprintln(out, "Quantity unchanged")
			return nil
		}
		a.printCart(out)
	case "remove":
		if len(args) < 2 {
			return usage("remove <lineId>")
		}
		a.sf.Cart.Remove(args[1])
		a.printCart(out)
	case "clear":
		a.sf.Cart.Clear()
		fmt.Fprintln(out, "Cart cleared")
	case "addresses":
		return a.printAddresses(ctx, out)
	case "address-add":
		addr := prompt.Address()
		if addr == nil {
			return nil
		}
		env, err := a.api.CreateAddress(ctx, addr)
		if err != nil {
			return err
		}
		return a.afterAddressChange(ctx, out, env, "Address saved")
	case "address-edit":
		if len(args) < 2 {
			return usage("address-edit <id>")
		}
		addr := prompt.Address()
		if addr == nil {
			return nil
		}
		addr.ID = args[1]
		env, err := a.api.UpdateAddress(ctx, args[1], addr)
		if err != nil {
			return err
		}
		return a.afterAddressChange(ctx, out, env, "Address updated")
	case "address-delete":
		if len(args) < 2 {
			return usage("address-delete <id>")
		}
		env, err := a.api.DeleteAddress(ctx, args[1])
		if err != nil {
			return err
		}
		return a.afterAddressChange(ctx, out, env, "Address deleted")
	case "address-default":
		if len(args) < 2 {
			return usage("address-default <id>")
		}
		return a.setDefaultAddress(ctx, out, args[1])
	case "checkout":
		return a.checkout(ctx, out)
	default:
		fmt.Fprintln(out, "Unknown command. Type 'help' for a list of commands.")
	}
	return nil
}

func (a *app) addToCart(out io.Writer, args []string) error {
	if len(args) < 1 {
		return usage("add <productId> [qty]")
	}
	p, ok := a.seen[args[0]]
	if !ok {
		return fmt.Errorf("product %s not listed yet, run 'products' first", args[0])
	}
	qty := 1
	if len(args) > 1 {
		n, err := strconv.Atoi(args[1])
		if err != nil {
			return usage("add <productId> [qty]")
		}
		qty = n
	}
	printResult(out, a.sf.Cart.Add(productRef(p), qty, nil))
	return nil
}

func (a *app) addresses(ctx context.Context) ([]models.Address, error) {
	env, err := a.api.Addresses(ctx)
	if err != nil {
		return nil, err
	}
	if !env.Success {
		return nil, fmt.Errorf("%s", messageOr(env.Message, "failed to fetch addresses"))
	}
	var addrs []models.Address
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &addrs); err != nil {
			return nil, fmt.Errorf("decode addresses: %w", err)
		}
	}
	return addrs, nil
}

func (a *app) printAddresses(ctx context.Context, out io.Writer) error {
	addrs, err := a.addresses(ctx)
	if err != nil {
		return err
	}
	if len(addrs) == 0 {
		fmt.Fprintln(out, "No saved addresses")
	}
	for _, ad := range addrs {
		printAddress(out, ad)
	}
	return nil
}

// afterAddressChange reports the outcome of an address write and, on
// success, shows the refreshed address book.
func (a *app) afterAddressChange(ctx context.Context, out io.Writer, env *models.Envelope, fallback string) error {
	if !env.Success {
		printResult(out, models.Fail(messageOr(env.Message, "Failed to save address")))
		return nil
	}
	printResult(out, models.Ok(messageOr(env.Message, fallback)))
	return a.printAddresses(ctx, out)
}

// setDefaultAddress fetches the address and writes it back with is_default set.
func (a *app) setDefaultAddress(ctx context.Context, out io.Writer, id string) error {
	env, err := a.api.Address(ctx, id)
	if err != nil {
		return err
	}
	if !env.Success {
		printResult(out, models.Fail(messageOr(env.Message, "Address not found")))
		return nil
	}
	var addr models.Address
	if err := json.Unmarshal(env.Data, &addr); err != nil {
		return fmt.Errorf("decode address: %w", err)
	}
	addr.ID = id
	addr.IsDefault = true
	env, err = a.api.UpdateAddress(ctx, id, addr)
	if err != nil {
		return err
	}
	return a.afterAddressChange(ctx, out, env, "Default address updated")
}

// checkout walks the address, summary and payment steps interactively.
func (a *app) checkout(ctx context.Context, out io.Writer) error {
	addrs, err := a.addresses(ctx)
	if err != nil && a.sf.Session.IsAuthenticated() {
		return err
	}
	co, err := a.sf.StartCheckout(addrs)
	if err != nil {
		return err
	}

	if len(addrs) == 0 {
		return fmt.Errorf("no saved addresses, run 'address-add' first")
	}
	for i, ad := range addrs {
		fmt.Fprintf(out, "%d) ", i+1)
		printAddress(out, ad)
	}
	choice := ask(out, "Deliver to #: ")
	i, err := strconv.Atoi(choice)
	if err != nil || i < 1 || i > len(addrs) {
		return fmt.Errorf("invalid choice %q", choice)
	}
	if err := co.SelectAddress(addrs[i-1].ID); err != nil {
		return err
	}

	a.printCart(out)
	if !strings.EqualFold(ask(out, "Place order? (y/N): "), "y") {
		fmt.Fprintln(out, "Checkout cancelled")
		return nil
	}
	if err := co.Confirm(); err != nil {
		return err
	}

	method := ask(out, fmt.Sprintf("Payment method (%s): ", strings.Join(store.PaymentMethods, ", ")))
	order, err := co.Complete(method)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Order placed: %d line(s), total %.2f, you saved %.2f, paid by %s\n",
		len(order.Lines), order.Total, order.Savings, order.Method)
	return nil
}

func (a *app) printWishlist(out io.Writer) {
	entries := a.sf.Wishlist.Entries()
	if len(entries) == 0 {
		fmt.Fprintln(out, "Wishlist is empty")
		return
	}
	for _, e := range entries {
		name := e.ProductName
		if name == "" {
			name = "Unnamed Product"
		}
		status := ""
		if e.Pending {
			status = " (saving...)"
		}
		fmt.Fprintf(out, "%s  %s%s\n", e.ProductID, name, status)
	}
	fmt.Fprintf(out, "%d item(s)\n", a.sf.Wishlist.Count())
}

func (a *app) printCart(out io.Writer) {
	lines := a.sf.Cart.Lines()
	if len(lines) == 0 {
		fmt.Fprintln(out, "Cart is empty")
		return
	}
	for _, l := range lines {
		fmt.Fprintf(out, "%s  %-32s %3d x %8.2f = %9.2f\n", l.LineID, l.Name, l.Quantity, l.SalePrice, l.Subtotal)
	}
	fmt.Fprintf(out, "%d item(s), total %.2f, savings %.2f\n", a.sf.Cart.Count(), a.sf.Cart.Total(), a.sf.Cart.Savings())
}

func printAddress(out io.Writer, ad models.Address) {
	def := ""
	if ad.IsDefault {
		def = " (default)"
	}
	fmt.Fprintf(out, "[%s] %s: %s, %s %s, %s%s\n", ad.ID, ad.Label, ad.Street, ad.Zip, ad.City, ad.Country, def)
}

func printResult(out io.Writer, res models.Result) {
	if res.Success {
		fmt.Fprintln(out, res.Message)
		return
	}
	fmt.Fprintln(out, "Failed:", res.Message)
}

func ask(out io.Writer, label string) string {
	fmt.Fprint(out, label)
	var s string
	_, _ = fmt.Scanln(&s)
	return strings.TrimSpace(s)
}

func usage(u string) error {
	return fmt.Errorf("usage: %s", u)
}
