// Package writer serializes an engine result into a flat rule file: a block
// of "#" header lines followed by one canonical rule per line.
package writer

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"rulemerge/engine"
	"rulemerge/parser"
)

// Beijing is the zone generation times are reported in.
var Beijing = time.FixedZone("CST", 8*60*60)

const timeLayout = "2006-01-02 15:04:05"

// Meta is the descriptive part of the header.
type Meta struct {
	Title        string
	SubscribeURL string
	GeneratedAt  time.Time
}

// Header builds the comment lines that precede the rules.
func Header(res *engine.Result, meta Meta) []string {
	rule := "# " + strings.Repeat("=", 58)
	thin := "# " + strings.Repeat("-", 58)

	h := []string{
		"# " + meta.Title,
		"# Generated: " + meta.GeneratedAt.In(Beijing).Format(timeLayout),
		fmt.Sprintf("# Total: %d rules", len(res.Rules)),
		fmt.Sprintf("# Removed: %d redundant rules", res.Removed()),
	}
	if meta.SubscribeURL != "" {
		h = append(h, "# Subscribe: "+meta.SubscribeURL)
	}
	h = append(h, rule)

	for _, s := range res.Sources {
		h = append(h, fmt.Sprintf("# Source: %s | raw %d | extracted %d", s.Name, s.Raw, s.Valid))
	}
	h = append(h, thin)

	for _, kind := range parser.Kinds {
		if n := res.Kinds[kind]; n > 0 {
			h = append(h, fmt.Sprintf("# %s: %d", kind, n))
		}
	}
	return append(h, rule)
}

// Write emits the header, a blank line and the rules.
func Write(w io.Writer, res *engine.Result, meta Meta) error {
	bw := bufio.NewWriter(w)
	for _, line := range Header(res, meta) {
		bw.WriteString(line)
		bw.WriteByte('\n')
	}
	bw.WriteByte('\n')
	for _, r := range res.Rules {
		bw.WriteString(r)
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

// WriteFile writes the result to path, replacing the previous file only once
// the new one is complete.
func WriteFile(path string, res *engine.Result, meta Meta) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := Write(tmp, res, meta); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write rules: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
