// Package prompt reads interactive form input for the client shell from
// standard input.
package prompt

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/atinyakov/storefront/internal/client/api"
	"github.com/atinyakov/storefront/internal/models"
)

// Credentials asks for the login email and password.
func Credentials() (email, password string) {
	scanner := bufio.NewScanner(os.Stdin)
	fmt.Print("Email: ")
	scanner.Scan()
	email = strings.TrimSpace(scanner.Text())

	fmt.Print("Password: ")
	scanner.Scan()
	password = scanner.Text()
	return email, password
}

// Registration asks for the account fields.
func Registration() api.RegisterRequest {
	scanner := bufio.NewScanner(os.Stdin)
	var req api.RegisterRequest

	fmt.Print("Name: ")
	scanner.Scan()
	req.Name = strings.TrimSpace(scanner.Text())

	fmt.Print("Email: ")
	scanner.Scan()
	req.Email = strings.TrimSpace(scanner.Text())

	fmt.Print("Password: ")
	scanner.Scan()
	req.Password = scanner.Text()

	fmt.Print("Phone (optional): ")
	scanner.Scan()
	req.Phone = strings.TrimSpace(scanner.Text())
	return req
}

// Address reads a delivery address, either from a JSON file or field by
// field. It returns nil when the file cannot be read.
func Address() *models.Address {
	scanner := bufio.NewScanner(os.Stdin)
	fmt.Print("Enter JSON file path to load (leave empty for manual input): ")
	scanner.Scan()
	path := strings.TrimSpace(scanner.Text())

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			fmt.Printf("Failed to read file %q: %v\n", path, err)
			return nil
		}
		var addr models.Address
		if err := json.Unmarshal(data, &addr); err != nil {
			fmt.Printf("Failed to parse file %q: %v\n", path, err)
			return nil
		}
		return &addr
	}

	var addr models.Address
	fields := []struct {
		label string
		dst   *string
	}{
		{"Label (Home, Work...)", &addr.Label},
		{"Phone", &addr.Phone},
		{"Street", &addr.Street},
		{"City", &addr.City},
		{"State", &addr.State},
		{"Country", &addr.Country},
		{"ZIP", &addr.Zip},
	}
	for _, f := range fields {
		fmt.Printf("%s: ", f.label)
		scanner.Scan()
		*f.dst = strings.TrimSpace(scanner.Text())
	}

	fmt.Print("Default address? (y/N): ")
	scanner.Scan()
	addr.IsDefault = strings.EqualFold(strings.TrimSpace(scanner.Text()), "y")
	return &addr
}
