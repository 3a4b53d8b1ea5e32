// Command jsonpaginate downloads every page of a paginated JSON API and
// writes the merged records as JSON or JSON Lines.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
