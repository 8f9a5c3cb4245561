package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/erazemk/ecopickup/internal/client"
	"github.com/erazemk/ecopickup/internal/config"
	"github.com/erazemk/ecopickup/internal/dashboard"
	"github.com/erazemk/ecopickup/internal/model"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true)
	sectionStyle = lipgloss.NewStyle().Bold(true).Underline(true).MarginTop(1)
	faintStyle   = lipgloss.NewStyle().Faint(true)
	errStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	liveStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("157"))
)

var statusColors = map[string]lipgloss.Color{
	model.StatusPending:   lipgloss.Color("230"),
	model.StatusAccepted:  lipgloss.Color("111"),
	model.StatusOnTheWay:  lipgloss.Color("216"),
	model.StatusPicked:    lipgloss.Color("183"),
	model.StatusCompleted: lipgloss.Color("36"),
}

func statusLabel(status string) string {
	label := strings.ReplaceAll(status, "_", " ")
	if c, ok := statusColors[status]; ok {
		return lipgloss.NewStyle().Foreground(c).Render(label)
	}
	return label
}

// screen is what one frame of the dashboard shows.
type screen struct {
	Session *client.Session
	View    string
	Snap    client.Snapshot
	Note    string
	Now     time.Time
}

func render(sc screen) string {
	var b strings.Builder

	state := liveStyle.Render("live")
	if !sc.Snap.Connected {
		state = faintStyle.Render("offline")
	}
	fmt.Fprintf(&b, "%s  %s (%s)  %s\n",
		titleStyle.Render("ecopickup"), sc.Session.Username, sc.Session.Role, state)
	if sc.Snap.Err != nil {
		b.WriteString(errStyle.Render(sc.Snap.Err.Error()) + "\n")
	}

	switch sc.Session.Role {
	case model.RoleUser:
		renderRequester(&b, sc)
	case model.RoleAgent:
		renderAgent(&b, sc)
	case model.RoleAdmin:
		renderAdmin(&b, sc)
	}

	if sc.Note != "" {
		b.WriteString("\n" + sc.Note + "\n")
	}
	b.WriteString(faintStyle.Render("\n" + commandHelp(sc.Session.Role)))
	b.WriteString("\n")
	return b.String()
}

func pickupLine(p model.Pickup, now time.Time) string {
	title := "item"
	if p.Item != nil && p.Item.Title != "" {
		title = p.Item.Title
	}
	line := fmt.Sprintf("#%-4d %-24s %s", p.ID, title, statusLabel(p.Status))
	if p.User != nil && p.User.Address != "" {
		line += "  " + p.User.Address
	}
	return line + "  " + faintStyle.Render(humanize.RelTime(p.UpdatedAt, now, "ago", "from now"))
}

func timelineLine(p model.Pickup, now time.Time) string {
	parts := make([]string, 0, len(model.Statuses))
	for _, s := range dashboard.Timeline(p) {
		mark := "○"
		if s.Reached {
			mark = "●"
		}
		part := mark + " " + strings.ReplaceAll(s.Status, "_", " ")
		if s.Current && s.At != nil {
			part += " " + humanize.RelTime(*s.At, now, "ago", "from now")
		}
		if !s.Reached {
			part = faintStyle.Render(part)
		}
		parts = append(parts, part)
	}
	return "      " + strings.Join(parts, "  ")
}

func renderList(b *strings.Builder, heading string, pickups []model.Pickup, now time.Time, timeline bool) {
	b.WriteString(sectionStyle.Render(fmt.Sprintf("%s (%d)", heading, len(pickups))) + "\n")
	if len(pickups) == 0 {
		b.WriteString(faintStyle.Render("  nothing here") + "\n")
		return
	}
	for _, p := range pickups {
		b.WriteString("  " + pickupLine(p, now) + "\n")
		if timeline {
			b.WriteString(timelineLine(p, now) + "\n")
		}
	}
}

func renderRequester(b *strings.Builder, sc screen) {
	renderList(b, "My pickups", dashboard.Requester(sc.Snap.Pickups, sc.Session.UserID), sc.Now, true)
}

func renderAgent(b *strings.Builder, sc screen) {
	if sc.View != config.ViewMine {
		renderList(b, "Available", dashboard.AgentPending(sc.Snap.Pickups), sc.Now, false)
	}
	if sc.View != config.ViewPending {
		renderList(b, "Assigned to me", dashboard.AgentMine(sc.Snap.Pickups, sc.Session.AgentID), sc.Now, true)
	}
}

func renderAdmin(b *strings.Builder, sc screen) {
	v := dashboard.Admin(sc.Snap.Pickups, sc.Snap.Analytics)
	a := v.Analytics
	b.WriteString(sectionStyle.Render("Overview") + "\n")
	fmt.Fprintf(b, "  users %s  agents %s  items %s  pickups %s  completed %s (%.0f%%)\n",
		humanize.Comma(int64(a.TotalUsers)), humanize.Comma(int64(a.TotalAgents)),
		humanize.Comma(int64(a.TotalItems)), humanize.Comma(int64(a.TotalPickups)),
		humanize.Comma(int64(a.CompletedPickups)), v.CompletionRate*100)
	for _, g := range v.Groups {
		renderList(b, strings.ReplaceAll(g.Status, "_", " "), g.Pickups, sc.Now, false)
	}
}

func commandHelp(role string) string {
	if role == model.RoleAgent {
		return "commands: accept <id>, advance <id>, view pending|mine|all, refresh, quit"
	}
	return "commands: refresh, quit"
}
