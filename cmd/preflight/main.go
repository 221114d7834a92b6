// cmd/preflight/main.go
package main

import (
	"fmt"
	"os"
	"strings"
)

func main() {
	fail := func(msg string) {
		fmt.Fprintln(os.Stderr, "✖", msg)
		os.Exit(1)
	}
	warn := func(msg string) { fmt.Fprintln(os.Stderr, "⚠", msg) }
	ok := func(msg string) { fmt.Println("✔", msg) }

	admin := strings.TrimSpace(os.Getenv("ADMIN_API_KEYS"))
	pub := strings.TrimSpace(os.Getenv("PUBLIC_API_KEYS"))
	apiAddr := strings.TrimSpace(os.Getenv("ADDR"))
	db := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	sqlite := strings.TrimSpace(os.Getenv("SQLITE_PATH"))
	allowed := strings.TrimSpace(os.Getenv("ALLOWED_ORIGINS"))
	lineToken := strings.TrimSpace(os.Getenv("LINE_CHANNEL_ACCESS_TOKEN"))
	lineUser := strings.TrimSpace(os.Getenv("LINE_USER_ID"))
	slack := strings.TrimSpace(os.Getenv("SLACK_WEBHOOK_URL"))

	if admin == "" {
		fail("ADMIN_API_KEYS is empty (admin routes will 403).")
	}
	if pub == "" {
		fail("PUBLIC_API_KEYS is empty (read routes will 401).")
	}

	// Normalize and sanity-check lists (no spaces around commas).
	for name, v := range map[string]string{"ADMIN_API_KEYS": admin, "PUBLIC_API_KEYS": pub} {
		if strings.Contains(v, " ") {
			warn(name + " contains spaces; use comma-separated with no spaces, e.g. key1,key2")
		}
	}

	if apiAddr == "" {
		warn("ADDR is empty; default in your app may be used.")
	} else {
		ok("ADDR=" + apiAddr)
	}

	switch {
	case db != "":
		ok("DATABASE_URL present (Postgres store)")
	case sqlite != "":
		ok("SQLITE_PATH=" + sqlite + " (SQLite store)")
	default:
		warn("Neither DATABASE_URL nor SQLITE_PATH set — the watchlist lives in memory and is lost on restart.")
	}

	if allowed == "" {
		warn("ALLOWED_ORIGINS empty — browser will be blocked by CORS for cross-origin requests.")
	} else {
		ok("ALLOWED_ORIGINS=" + allowed)
	}

	// Notification readiness: the watcher still runs without it, but
	// restock alerts go nowhere.
	switch {
	case lineToken != "" && lineUser != "":
		ok("LINE push configured")
	case lineToken != "" || lineUser != "":
		warn("LINE push needs both LINE_CHANNEL_ACCESS_TOKEN and LINE_USER_ID; only one is set.")
	default:
		warn("LINE push not configured.")
	}
	if slack != "" {
		ok("Slack webhook configured")
	}
	if lineToken == "" && slack == "" {
		warn("No notification sink configured — stock changes will only be logged.")
	}

	ok("preflight passed")
}
