/*
 * Copyright 2025 CloudWeGo Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package render prints allocator snapshots for buddyctl.
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/cloudwego/buddyalloc/buddy"
)

var (
	headerColor    = lipgloss.Color("#7D56F4")
	freeColor      = lipgloss.Color("#04B575")
	allocatedColor = lipgloss.Color("#00D7FF")
	mutedColor     = lipgloss.Color("#666666")
	errorColor     = lipgloss.Color("#FF4B4B")
)

// Options controls text output.
type Options struct {
	// NoColor disables all styling.
	NoColor bool
}

type styles struct {
	header    lipgloss.Style
	free      lipgloss.Style
	allocated lipgloss.Style
	muted     lipgloss.Style
	err       lipgloss.Style
}

// newStyles binds the palette to w, so colors are dropped when w is not a terminal.
func newStyles(w io.Writer, opts Options) styles {
	r := lipgloss.NewRenderer(w)
	if opts.NoColor {
		plain := r.NewStyle()
		return styles{header: plain, free: plain, allocated: plain, muted: plain, err: plain}
	}
	return styles{
		header:    r.NewStyle().Bold(true).Foreground(headerColor),
		free:      r.NewStyle().Foreground(freeColor),
		allocated: r.NewStyle().Foreground(allocatedColor),
		muted:     r.NewStyle().Foreground(mutedColor).Italic(true),
		err:       r.NewStyle().Bold(true).Foreground(errorColor),
	}
}

// Text writes the free and allocated block tables of s.
func Text(w io.Writer, s buddy.Snapshot, opts Options) error {
	st := newStyles(w, opts)
	var b strings.Builder

	b.WriteString(st.header.Render("Free Blocks"))
	b.WriteByte('\n')
	if len(s.Free) == 0 {
		b.WriteString("  " + st.muted.Render("No free blocks") + "\n")
	}
	for _, fb := range s.Free {
		line := fmt.Sprintf("Size: %d, Block start address: %s", fb.Size, joinInts(fb.Addrs))
		b.WriteString("  " + st.free.Render(line) + "\n")
	}

	b.WriteString(st.header.Render("Allocated Blocks"))
	b.WriteByte('\n')
	if len(s.Allocated) == 0 {
		b.WriteString("  " + st.muted.Render("No allocated blocks") + "\n")
	}
	for _, ab := range s.Allocated {
		line := fmt.Sprintf("Start address: %d, Size: %d", ab.Addr, ab.Size)
		b.WriteString("  " + st.allocated.Render(line) + "\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// Error writes msg as an error line.
func Error(w io.Writer, msg string, opts Options) error {
	st := newStyles(w, opts)
	_, err := fmt.Fprintln(w, st.err.Render("Error: "+msg))
	return err
}

// JSON writes s as indented JSON.
func JSON(w io.Writer, s buddy.Snapshot) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(s)
}

func joinInts(vv []int) string {
	ss := make([]string, len(vv))
	for i, v := range vv {
		ss[i] = strconv.Itoa(v)
	}
	return strings.Join(ss, ", ")
}
