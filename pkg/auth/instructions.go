package auth

import (
	"fmt"
	"io"
	"strings"
)

// ShowAppSetupGuide explains how to create the Reddit "script" app whose
// client id and secret the password grant needs.
func ShowAppSetupGuide(w io.Writer) {
	rule := strings.Repeat("=", 72)

	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, "REDDIT API CREDENTIALS")
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "snooper signs in with your Reddit account through a personal script app.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "STEP 1: Open https://www.reddit.com/prefs/apps while logged in")
	fmt.Fprintln(w, "STEP 2: Click 'create another app...' at the bottom of the page")
	fmt.Fprintln(w, "STEP 3: Pick the 'script' type, any name, and http://localhost:8080 as redirect uri")
	fmt.Fprintln(w, "STEP 4: Copy the values:")
	fmt.Fprintln(w, "   client id      the short string under 'personal use script'")
	fmt.Fprintln(w, "   client secret  the value next to 'secret'")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Accounts with two-factor authentication must append the current code")
	fmt.Fprintln(w, "to the password as password:123456.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, rule)
}

// ShowQuickSetupGuide shows a condensed version for experienced users
func ShowQuickSetupGuide(w io.Writer) {
	fmt.Fprintln(w, "Need: Reddit username, password, and a script app's client id + secret (reddit.com/prefs/apps)")
	fmt.Fprintln(w, "Run 'snooper auth guide' for detailed instructions")
}
