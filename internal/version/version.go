// ABOUTME: Version information for the player
// ABOUTME: Overridden at build time with -ldflags "-X"
package version

var (
	// Version is the release version
	Version = "0.1.0"

	// Product is the product name shown in logs and the TUI
	Product = "Resonate Deck"

	// Manufacturer identifies the publisher
	Manufacturer = "Resonate"
)

// String returns the product name and version, e.g. "Resonate Deck 0.1.0"
func String() string {
	return Product + " " + Version
}
