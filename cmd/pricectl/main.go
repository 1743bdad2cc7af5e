// Command pricectl administers the pricing engine: schema migrations,
// fixture seeding and offline quotes.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
