// Package logger prints leveled, colored console output. Plain printf
// wrappers with no filtering; the vault is chatty on purpose.
package logger

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"
)

var (
	tagInfo  = color.New(color.FgCyan, color.Bold).Sprint("[INFO]")
	tagOK    = color.New(color.FgGreen, color.Bold).Sprint("[OK]")
	tagWarn  = color.New(color.FgYellow, color.Bold).Sprint("[WARN]")
	tagErr   = color.New(color.FgRed, color.Bold).Sprint("[ERR]")
	tagFatal = color.New(color.BgRed, color.FgWhite, color.Bold).Sprint("[FATAL]")

	dim       = color.New(color.FgHiBlack).SprintFunc()
	accent    = color.New(color.FgCyan, color.Bold).SprintFunc()
	highlight = color.New(color.FgGreen, color.Bold).SprintFunc()
)

func emit(w io.Writer, tag string, format string, v ...interface{}) {
	stamp := dim(time.Now().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "%s %s %s\n", stamp, tag, fmt.Sprintf(format, v...))
}

func LogInfo(format string, v ...interface{})    { emit(os.Stdout, tagInfo, format, v...) }
func LogSuccess(format string, v ...interface{}) { emit(os.Stdout, tagOK, format, v...) }
func LogWarn(format string, v ...interface{})    { emit(os.Stdout, tagWarn, format, v...) }
func LogError(format string, v ...interface{})   { emit(os.Stderr, tagErr, format, v...) }

func LogFatal(format string, v ...interface{}) {
	emit(os.Stderr, tagFatal, format, v...)
	os.Exit(1)
}

// LogServerStart prints the post-boot summary once the listener is up.
func LogServerStart(port int, baseURL string) {
	fmt.Println()
	fmt.Printf("   %s %s\n", highlight("⚡ Vault online"), dim("accepting photo batches"))
	fmt.Printf("   %s %s\n", accent("➜ Local: "), fmt.Sprintf("http://localhost:%d", port))
	fmt.Printf("   %s %s\n", accent("➜ Public:"), color.New(color.FgHiBlue, color.Underline).Sprint(baseURL))
	fmt.Println()
}
