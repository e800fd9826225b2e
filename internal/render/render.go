// Package render prints trees and stress results for terminals and browsers.
package render

import (
	"errors"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/Sumatoshi-tech/ordmap/internal/config"
	"github.com/Sumatoshi-tech/ordmap/pkg/rbtree"
)

// ErrUnknownFormat is returned for a format other than table, plain or sketch.
var ErrUnknownFormat = errors.New("unknown render format")

const noLink = "-"

// ColorEnabled resolves a config color mode. Auto follows fatih/color's
// terminal detection.
func ColorEnabled(mode string) bool {
	switch mode {
	case config.ColorAlways:
		return true
	case config.ColorNever:
		return false
	default:
		return !color.NoColor
	}
}

// Painter colors node colors and status words. The zero value prints plain
// text.
type Painter struct {
	red   *color.Color
	black *color.Color
	good  *color.Color
	bad   *color.Color
}

// NewPainter returns a painter that emits ANSI colors when enabled is true,
// regardless of the terminal.
func NewPainter(enabled bool) Painter {
	painter := Painter{
		red:   color.New(color.FgRed, color.Bold),
		black: color.New(color.FgHiWhite, color.BgBlack),
		good:  color.New(color.FgGreen),
		bad:   color.New(color.FgRed),
	}

	for _, c := range []*color.Color{painter.red, painter.black, painter.good, painter.bad} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}

	return painter
}

// Node renders a node color.
func (p Painter) Node(c rbtree.Color) string {
	if p.red == nil {
		return c.String()
	}

	if c == rbtree.Red {
		return p.red.Sprint(c.String())
	}

	return p.black.Sprint(c.String())
}

// Good renders a success message.
func (p Painter) Good(msg string) string {
	if p.good == nil {
		return msg
	}

	return p.good.Sprint(msg)
}

// Bad renders a failure message.
func (p Painter) Bad(msg string) string {
	if p.bad == nil {
		return msg
	}

	return p.bad.Sprint(msg)
}

// Tree writes tree in the given format.
func Tree[K, V any](w io.Writer, tree *rbtree.Tree[K, V], format string, painter Painter) error {
	var err error

	switch format {
	case config.FormatTable:
		_, err = io.WriteString(w, Table(tree, painter)+"\n")
	case config.FormatPlain:
		err = tree.Dump(w)
	case config.FormatSketch:
		err = tree.Sketch(w)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}

	if err != nil {
		return fmt.Errorf("render %s: %w", format, err)
	}

	return nil
}

// Table lists the nodes in key order with their color and links.
func Table[K, V any](tree *rbtree.Tree[K, V], painter Painter) string {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.SeparateRows = false
	tbl.Style().Format.Footer = text.FormatDefault
	tbl.AppendHeader(table.Row{"#", "Key", "Value", "Color", "Parent", "Left", "Right"})

	pos := 0

	for iter := tree.Min(); !iter.Limit(); iter = iter.Next() {
		tbl.AppendRow(table.Row{
			pos,
			iter.Key(),
			iter.Value(),
			painter.Node(iter.Color()),
			linkKey(iter.Parent()),
			linkKey(iter.Left()),
			linkKey(iter.Right()),
		})

		pos++
	}

	tbl.AppendFooter(table.Row{
		"", fmt.Sprintf("%d nodes", tree.Len()),
		fmt.Sprintf("height %d", tree.Height()),
		fmt.Sprintf("black height %d", tree.BlackHeight()),
	})

	return tbl.Render()
}

func linkKey[K, V any](iter rbtree.Iterator[K, V]) string {
	if !iter.Valid() {
		return noLink
	}

	return fmt.Sprint(iter.Key())
}
