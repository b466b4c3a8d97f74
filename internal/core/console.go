package core

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"DiffDrive/internal/app"
	"DiffDrive/internal/parser"
)

// RunConsole reads operator commands ("create 2 0 90", "follow", ...) line by
// line from r, submits them and prints each result to w. Blank lines and lines
// starting with '#' are skipped. It returns when r is exhausted or ctx is done.
func RunConsole(ctx context.Context, r io.Reader, w io.Writer, c app.Commander) error {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		cmd, err := parser.ParseCommand(line)
		if err != nil {
			fmt.Fprintf(w, "error: %v\n", err)
			continue
		}
		res, err := c.Submit(ctx, cmd)
		if err != nil {
			fmt.Fprintf(w, "error: %v\n", err)
			continue
		}
		status := "done"
		if !res.Finished {
			status = "rejected"
		}
		fmt.Fprintf(w, "%s: %s\n", status, res.Message)
	}
	return sc.Err()
}
