package store

import (
	"errors"
	"fmt"
	"slices"

	"github.com/atinyakov/storefront/internal/models"
)

type CheckoutStep int

const (
	StepAddress CheckoutStep = iota
	StepSummary
	StepPayment
	StepDone
)

func (s CheckoutStep) String() string {
	switch s {
	case StepAddress:
		return "address"
	case StepSummary:
		return "summary"
	case StepPayment:
		return "payment"
	default:
		return "done"
	}
}

var (
	ErrEmptyCart          = errors.New("cart is empty")
	ErrUnknownAddress     = errors.New("unknown address")
	ErrWrongStep          = errors.New("not allowed at this checkout step")
	ErrPaymentUnavailable = errors.New("payment method unavailable")
)

// PaymentMethods lists the accepted payment methods. Cash on delivery is
// offered but disabled.
var PaymentMethods = []string{"upi", "card", "emi", "netbanking", "giftcard"}

// Order is the summary of a completed checkout.
type Order struct {
	Lines   []models.CartLine `json:"lines"`
	Address models.Address    `json:"address"`
	Method  string            `json:"payment_method"`
	Total   float64           `json:"total"`
	Savings float64           `json:"savings"`
}

// Checkout walks a cart through address selection, order summary and
// payment. Payment is not processed; completing the flow clears the cart.
type Checkout struct {
	sf        *Storefront
	step      CheckoutStep
	addresses []models.Address
	address   *models.Address
}

// StartCheckout begins a checkout for the logged-in user with the given
// address book.
func (sf *Storefront) StartCheckout(addresses []models.Address) (*Checkout, error) {
	if !sf.Session.IsAuthenticated() {
		return nil, ErrLoginRequired
	}
	if sf.Cart.Count() == 0 {
		return nil, ErrEmptyCart
	}
	return &Checkout{sf: sf, step: StepAddress, addresses: slices.Clone(addresses)}, nil
}

func (c *Checkout) Step() CheckoutStep { return c.step }

// SelectAddress picks the delivery address and moves to the summary.
func (c *Checkout) SelectAddress(id string) error {
	if c.step != StepAddress {
		return fmt.Errorf("select address: %w", ErrWrongStep)
	}
	i := slices.IndexFunc(c.addresses, func(a models.Address) bool { return a.ID == id })
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrUnknownAddress, id)
	}
	addr := c.addresses[i]
	c.address = &addr
	c.step = StepSummary
	return nil
}

// Confirm accepts the summary and moves to payment.
func (c *Checkout) Confirm() error {
	if c.step != StepSummary {
		return fmt.Errorf("confirm: %w", ErrWrongStep)
	}
	c.step = StepPayment
	return nil
}

// Back returns to the previous step.
func (c *Checkout) Back() {
	switch c.step {
	case StepSummary:
		c.step = StepAddress
	case StepPayment:
		c.step = StepSummary
	}
}

// Complete pays with method, clears the cart and returns the order.
func (c *Checkout) Complete(method string) (*Order, error) {
	if c.step != StepPayment {
		return nil, fmt.Errorf("complete: %w", ErrWrongStep)
	}
	if !slices.Contains(PaymentMethods, method) {
		return nil, fmt.Errorf("%w: %s", ErrPaymentUnavailable, method)
	}
	cart := c.sf.Cart
	if cart.Count() == 0 {
		return nil, ErrEmptyCart
	}
	order := &Order{
		Lines:   cart.Lines(),
		Address: *c.address,
		Method:  method,
		Total:   cart.Total(),
		Savings: cart.Savings(),
	}
	cart.Clear()
	c.step = StepDone
	return order, nil
}
