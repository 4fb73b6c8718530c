package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"impactx/challenge"
	"impactx/leaderboard"
	"impactx/strategy"
)

// --- Styles ---
var (
	amber  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	red    = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	green  = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	dim    = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	header = lipgloss.NewStyle().Foreground(lipgloss.Color("15")).Bold(true)
	box    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

func renderBriefing(sc challenge.Scenario, seconds int) string {
	var b strings.Builder
	b.WriteString(red.Render("INCOMING ASTEROID") + "\n")
	fmt.Fprintf(&b, "Diameter %.0f m, velocity %.1f km/s, entry angle %.0f°\n", sc.SizeM, sc.SpeedKmS, sc.AngleDeg)
	fmt.Fprintf(&b, "Projected impact %.4f, %.4f (%s)\n", sc.ImpactLat, sc.ImpactLng, sc.Request().Location)
	b.WriteString(amber.Render(fmt.Sprintf("You have %d seconds to choose a defense.", seconds)) + "\n\n")

	for i, p := range strategy.Profiles() {
		fmt.Fprintf(&b, "  %d. %s  %s\n", i+1, header.Render(p.Name), dim.Render(fmt.Sprintf("(%s, %.0f%%)", p.Kind, p.SuccessChance*100)))
		fmt.Fprintf(&b, "     %s\n", p.Desc)
	}
	b.WriteString("\n" + dim.Render("Type a strategy name (typos are fine), then press Enter. 'quit' exits.") + "\n")
	return b.String()
}

func renderOutcome(o challenge.Outcome) string {
	var b strings.Builder
	switch {
	case o.Succeeded:
		b.WriteString(green.Render("DEFENSE SUCCESSFUL") + "\n")
	case o.TimedOut:
		b.WriteString(red.Render("TIME EXPIRED") + "\n")
	default:
		b.WriteString(red.Render("DEFENSE FAILED") + "\n")
	}
	b.WriteString(o.Message + "\n")
	if o.BlastRadiusKm > 0 {
		fmt.Fprintf(&b, "Blast radius: %.2f km\n", o.BlastRadiusKm)
	}
	fmt.Fprintf(&b, "Score: %s", amber.Render(fmt.Sprintf("%d", o.Score)))
	return box.Render(b.String())
}

func renderLeaderboard(entries []leaderboard.Entry) string {
	if len(entries) == 0 {
		return dim.Render("No defenders on the board yet.")
	}
	var b strings.Builder
	b.WriteString(header.Render(fmt.Sprintf("%-4s %-20s %12s  %s", "#", "NAME", "SCORE", "TITLE")) + "\n")
	for i, e := range entries {
		fmt.Fprintf(&b, "%-4d %-20s %12d  %s\n", i+1, truncate(e.Name, 20), e.Score, leaderboard.Title(e.Score))
	}
	return box.Render(strings.TrimRight(b.String(), "\n"))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
