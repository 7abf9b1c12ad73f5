package utils

import (
	"net/url"
	"strings"

	"photovault/internal/config"
)

// IsAllowedOrigin reports whether an Origin/Referer value matches one of the
// configured CORS patterns. Patterns support exact matches, "*",
// "*.example.com" (subdomains only) and "**.example.com" (domain + subdomains).
func IsAllowedOrigin(origin string) bool {
	allowedPatterns := config.AppConfig.Security.CorsOrigins

	if origin != "" {
		cleanOrigin := getCleanOrigin(origin)

		for _, pattern := range allowedPatterns {
			if MatchOrigin(cleanOrigin, pattern) {
				return true
			}
		}
	}

	return false
}

func getCleanOrigin(originURL string) string {
	u, err := url.Parse(originURL)
	if err != nil {
		return originURL
	}

	if u.Scheme != "" && u.Host != "" {
		return u.Scheme + "://" + u.Host
	}

	return originURL
}

func MatchOrigin(origin, pattern string) bool {
	if pattern == "*" {
		return true
	}

	if origin == pattern {
		return true
	}

	// "**.example.com" matches the main domain and every subdomain
	if strings.Contains(pattern, "**.") {
		base := strings.Replace(pattern, "**.", "", 1)

		if origin == base {
			return true
		}

		domainPart := removeProtocol(base)

		if strings.HasSuffix(origin, "."+domainPart) {
			return true
		}
	}

	// "*.example.com" matches subdomains only
	if strings.Contains(pattern, "*.") {
		parts := strings.Split(pattern, "*")
		if len(parts) == 2 {
			prefix := parts[0]
			suffix := parts[1]

			if strings.HasPrefix(origin, prefix) && strings.HasSuffix(origin, suffix) {
				middle := origin[len(prefix) : len(origin)-len(suffix)]

				if !strings.Contains(middle, "/") {
					return true
				}
			}
		}
	}

	return false
}

func removeProtocol(urlStr string) string {
	urlStr = strings.TrimPrefix(urlStr, "https://")
	return strings.TrimPrefix(urlStr, "http://")
}
