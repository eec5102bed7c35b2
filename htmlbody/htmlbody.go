// Package htmlbody answers structural questions about the HTML part of an
// email, e.g. whether it contains a link with a given class.
package htmlbody

import (
	"fmt"
	"strings"

	css "github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

// Count returns the number of elements in body that match the CSS selector s.
// Groups of selectors ("a.button, a.link") are allowed.
func Count(body string, s string) (int, error) {
	sel, err := css.Compile(s)
	if err != nil {
		return 0, fmt.Errorf("can't parse the CSS selector %q: %w", s, err)
	}

	// html.Parse is very forgiving and will build a document out of an
	// empty string or plain text, so errors here come from the reader.
	n, err := html.Parse(strings.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("can't parse the HTML body: %w", err)
	}

	return len(sel.MatchAll(n)), nil
}
