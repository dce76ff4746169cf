// Package security sets response hardening headers.
package security

import (
	"net/http"

	"github.com/unrolled/secure"
)

// Options returns the header policy for a JSON API. Development mode
// disables the HTTPS-only parts.
func Options(isDevelopment bool) secure.Options {
	return secure.Options{
		IsDevelopment:         isDevelopment,
		ContentTypeNosniff:    true,
		FrameDeny:             true,
		BrowserXssFilter:      true,
		ContentSecurityPolicy: "default-src 'none'; frame-ancestors 'none'",
		ReferrerPolicy:        "strict-origin-when-cross-origin",
		PermissionsPolicy:     "geolocation=(), microphone=(), camera=(), payment=()",
		STSSeconds:            31536000,
		STSIncludeSubdomains:  true,
	}
}

// Headers returns middleware applying opts.
func Headers(opts secure.Options) func(http.Handler) http.Handler {
	return secure.New(opts).Handler
}
