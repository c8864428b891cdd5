package cli

import (
	"bytes"
	"encoding/json"

	"github.com/fatih/color"
)

var (
	okColor      = color.New(color.FgGreen).SprintfFunc()
	errorColor   = color.New(color.FgRed, color.Bold).SprintfFunc()
	noticeColor  = color.New(color.FgYellow).SprintfFunc()
	inFrameColor = color.New(color.FgCyan).SprintfFunc()
)

// prettyJSON indents b, returning it unchanged if it is not JSON.
func prettyJSON(b []byte) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, b, "", "  "); err != nil {
		return string(b)
	}
	return buf.String()
}
