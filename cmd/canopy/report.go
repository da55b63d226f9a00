package main

import (
	"io"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dm-vev/canopy/sim"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	headStyle  = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle  = lipgloss.NewStyle().Padding(0, 1)
)

// printer formats numbers with thousands separators.
var printer = message.NewPrinter(language.English)

// formatSeed prints seeds without digit grouping, so they can be passed back to
// run --seed verbatim.
func formatSeed(seed uint64) string {
	return strconv.FormatUint(seed, 10)
}

// writeReport writes a human readable summary of res to w.
func writeReport(w io.Writer, res sim.Result) error {
	header := []string{
		titleStyle.Render("forest run " + res.ID.String()),
		printer.Sprintf("%s %s   %s %s", labelStyle.Render("seed"), formatSeed(res.Seed), labelStyle.Render("started"), res.Started.Format(time.DateTime)),
		printer.Sprintf("%s %d (%s) in %v", labelStyle.Render("steps"), res.Steps, res.Stop, res.Duration.Round(time.Millisecond)),
		printer.Sprintf("%s %d of %d claimed, %d free", labelStyle.Render("points"), res.Points-res.FreePoints, res.Points, res.FreePoints),
	}
	if _, err := io.WriteString(w, lipgloss.JoinVertical(lipgloss.Left, header...)+"\n"); err != nil {
		return err
	}
	if len(res.Trees) == 0 {
		return nil
	}
	_, err := io.WriteString(w, treeTable(res.Trees).Render()+"\n")
	return err
}

func treeTable(trees []sim.TreeSummary) *table.Table {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("tree", "root", "trunk", "height", "nodes", "consumed", "quota", "radius", "in radius", "neighbours", "stop").
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headStyle
			}
			return cellStyle
		})
	for _, tree := range trees {
		x, y, z := tree.Root.Elem()
		t.Row(
			strconv.Itoa(int(tree.ID)),
			printer.Sprintf("%.1f, %.1f, %.1f", x, y, z),
			printer.Sprintf("%.1f", tree.TrunkHeight),
			printer.Sprintf("%.2f", tree.Height),
			printer.Sprintf("%d", tree.Nodes),
			printer.Sprintf("%d", tree.Consumed),
			printer.Sprintf("%d", tree.Quota),
			printer.Sprintf("%.2f", tree.GrowthRadius),
			printer.Sprintf("%d", tree.PointsInRadius),
			printer.Sprintf("%d", tree.Neighbours),
			tree.Stop.String(),
		)
	}
	return t
}

// writeRunList writes a one line summary per run to w.
func writeRunList(w io.Writer, runs []sim.Result) error {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("run", "started", "seed", "trees", "steps", "stop", "claimed").
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headStyle
			}
			return cellStyle
		})
	for _, res := range runs {
		t.Row(
			res.ID.String(),
			res.Started.Format(time.DateTime),
			formatSeed(res.Seed),
			printer.Sprintf("%d", len(res.Trees)),
			printer.Sprintf("%d", res.Steps),
			res.Stop.String(),
			printer.Sprintf("%d/%d", res.Points-res.FreePoints, res.Points),
		)
	}
	_, err := io.WriteString(w, t.Render()+"\n")
	return err
}
