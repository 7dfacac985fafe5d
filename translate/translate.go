// Package translate formats user visible messages for the active locale.
package translate

import (
	"io"
	"log"

	"github.com/jeandeaual/go-locale"

	"golang.org/x/text/message"
)

var printer *message.Printer

func init() {
	SetLanguage()
}

// SetLanguage selects the message language from a list of BCP 47 tags.
// With no tags the system locales are used, falling back to en-US.
func SetLanguage(tags ...string) {
	if len(tags) == 0 {
		locales, err := locale.GetLocales()
		if err != nil {
			log.Printf("asm8: locale: %v", err)
		}
		tags = locales
	}

	if len(tags) == 0 {
		tags = []string{"en-US"}
	}

	printer = message.NewPrinter(message.MatchLanguage(tags...))
}

// From an en-US Sprintf() format, translate to string.
func From(key message.Reference, args ...any) string {
	return printer.Sprintf(key, args...)
}

// Fprintf writes an en-US Fprintf() format, translated, to w.
func Fprintf(w io.Writer, key message.Reference, args ...any) (n int, err error) {
	return printer.Fprintf(w, key, args...)
}
