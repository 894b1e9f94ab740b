package config

import (
	"net/url"
	"regexp"
	"strings"
)

// keywordPassword matches the password of a keyword/value connection
// string such as "host=db user=app password='s e c'".
var keywordPassword = regexp.MustCompile(`(?i)(\bpassword\s*=\s*)('(?:[^'\\]|\\.)*'|\S*)`) //nolint:gochecknoglobals // compiled once

// RedactURL hides the password of a database connection string. Both the
// URL form and the keyword/value form are understood; anything else is
// returned unchanged.
func RedactURL(raw string) string {
	if raw == "" {
		return ""
	}

	if !strings.Contains(raw, "://") {
		return keywordPassword.ReplaceAllString(raw, "${1}***")
	}

	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}

	if _, ok := u.User.Password(); !ok {
		return raw
	}

	// Splice the raw string so the rest of it keeps its original escaping.
	afterScheme := strings.Index(raw, "://") + len("://")

	at := strings.Index(raw[afterScheme:], "@")
	if at < 0 {
		return raw
	}

	userinfo := raw[afterScheme : afterScheme+at]

	colon := strings.Index(userinfo, ":")
	if colon < 0 {
		return raw
	}

	return raw[:afterScheme] + userinfo[:colon+1] + "***" + raw[afterScheme+at:]
}
