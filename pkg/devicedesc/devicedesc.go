// Package devicedesc turns a raw User-Agent header into a short human
// description for security notifications ("a request from Chrome on Linux").
package devicedesc

import (
	"fmt"

	"github.com/mssola/useragent"
)

// Describe summarizes a User-Agent string. Unknown or empty agents map to a
// generic description rather than leaking the raw header into emails.
func Describe(ua string) string {
	if ua == "" {
		return "an unrecognized device"
	}
	parsed := useragent.New(ua)
	name, _ := parsed.Browser()
	os := parsed.OSInfo().Name
	switch {
	case name != "" && os != "":
		return fmt.Sprintf("%s on %s", name, os)
	case name != "":
		return name
	case os != "":
		return fmt.Sprintf("a device running %s", os)
	default:
		return "an unrecognized device"
	}
}
