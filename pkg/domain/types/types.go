package types

import "strconv"

// Version is the application version, overridden at build time via ldflags.
var Version = "dev"

// PRNumber is a pull request number. It is the only key correlating a
// workspace, an artifact download and a container.
type PRNumber int

// String returns the decimal form of the number
func (n PRNumber) String() string {
	return strconv.Itoa(int(n))
}

// Valid reports whether n can refer to a real pull request
func (n PRNumber) Valid() bool {
	return n > 0
}
