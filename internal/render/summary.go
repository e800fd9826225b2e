package render

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/Sumatoshi-tech/ordmap/internal/stress"
	"github.com/Sumatoshi-tech/ordmap/pkg/safeconv"
)

// Summary formats a stress result as a two-column table.
func Summary(res *stress.Result, painter Painter) string {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.DrawBorder = false
	tbl.Style().Options.SeparateColumns = false

	tbl.AppendRows([]table.Row{
		{"operations", humanize.Comma(int64(res.Operations))},
		{"inserts", humanize.Comma(int64(res.Inserts))},
		{"removals", humanize.Comma(int64(res.Removals))},
		{"missed removals", humanize.Comma(int64(res.Misses))},
		{"final size", humanize.Comma(int64(res.FinalSize))},
		{"max height", fmt.Sprintf("%d (bound %.1f)", res.MaxHeight, stress.HeightBound(res.FinalSize))},
		{"rotations", counter(res.Stats.Rotations)},
		{"insert fixups", counter(res.Stats.InsertFixups)},
		{"delete fixups", counter(res.Stats.DeleteFixups)},
		{"invariant checks", checks(res, painter)},
		{"arena", humanize.IBytes(res.Footprint)},
		{"duration", res.Duration.Round(time.Microsecond).String()},
		{"throughput", humanize.SIWithDigits(rate(res), 1, "ops/s")},
	})

	return tbl.Render()
}

func checks(res *stress.Result, painter Painter) string {
	passed := humanize.Comma(int64(res.Checks-res.Violations)) + " passed"
	if res.Violations == 0 {
		return painter.Good(passed)
	}

	return painter.Bad(passed + ", " + humanize.Comma(int64(res.Violations)) + " failed")
}

func rate(res *stress.Result) float64 {
	if res.Duration <= 0 {
		return 0
	}

	return float64(res.Operations) / res.Duration.Seconds()
}

func counter(n uint64) string {
	return humanize.Comma(safeconv.MustUint64ToInt64(n))
}
