// Package utils provides common helper functions for string manipulation,
// data parsing, and request plumbing used across the application.
package utils

import (
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"photovault/pkg/logger"
)

// LoadEnv reads a .env file from the working directory when present.
// Missing files are fine; real deployments inject env vars directly.
func LoadEnv() {
	if _, err := os.Stat(".env"); err != nil {
		return
	}
	if err := godotenv.Load(); err != nil {
		logger.LogWarn("Failed to load .env file: %v", err)
	}
}

// NormalizeFilename cleans an incoming filename for collision matching.
// - trims spaces
// - strips any path components (uploads carry base names only)
func NormalizeFilename(name string) string {
	name = strings.TrimSpace(name)

	if idx := strings.LastIndexAny(name, "/\\"); idx >= 0 {
		name = name[idx+1:]
	}
	return name
}

func GetRealIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		ips := strings.Split(xff, ",")
		return strings.TrimSpace(ips[0])
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

func FormatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.2f %cB", float64(b)/float64(div), "KMGTPE"[exp])
}

// ParseInt safely parses a string to int with bounds checking.
// Usage: ParseInt("50", 20, 1, 200) -> Returns 50
// Usage: ParseInt("abc", 20, 1, 200) -> Returns 20 (Default)
// Usage: ParseInt("999", 20, 1, 200) -> Returns 200 (Max)
func ParseInt(value string, def int, min int, max int) int {
	if value == "" {
		return def
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	if i < min {
		return min
	}
	if i > max {
		return max
	}
	return i
}
