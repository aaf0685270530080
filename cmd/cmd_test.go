package cmd

import (
	"bytes"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/pterm/pterm"
)

var outBuf bytes.Buffer

// setupStdoutCapture sends pterm output to outBuf without styling.
func setupStdoutCapture(t *testing.T) {
	t.Helper()
	outBuf.Reset()
	pterm.SetDefaultOutput(&outBuf)
	pterm.DisableStyling()

	// Prefix printers keep the writer they were created with.
	info, success, warning, errPrinter := pterm.Info, pterm.Success, pterm.Warning, pterm.Error
	pterm.Info = *pterm.Info.WithWriter(&outBuf)
	pterm.Success = *pterm.Success.WithWriter(&outBuf)
	pterm.Warning = *pterm.Warning.WithWriter(&outBuf)
	pterm.Error = *pterm.Error.WithWriter(&outBuf)

	t.Cleanup(func() {
		pterm.Info, pterm.Success, pterm.Warning, pterm.Error = info, success, warning, errPrinter
		pterm.SetDefaultOutput(os.Stdout)
		pterm.EnableStyling()
	})
}

// captureStdout redirects os.Stdout for output written with fmt, such as JSON.
// The returned func restores it and returns what was written.
func captureStdout(t *testing.T) func() string {
	t.Helper()
	oldStdout := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w
	t.Cleanup(func() {
		os.Stdout = oldStdout
	})
	return func() string {
		w.Close()
		os.Stdout = oldStdout
		var buf bytes.Buffer
		_, _ = io.Copy(&buf, r)
		return buf.String()
	}
}

func stringsReader(s string) io.Reader { return strings.NewReader(s) }
