package console

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-runewidth"
)

// Frame carries the render inputs that live outside the Model: animation
// frames, terminal width, the help bar and the clock used for relative
// timestamps.
type Frame struct {
	Width   int
	Spinner string
	Bar     string // Rendered progress bar for the active percent.
	Help    string
	Now     time.Time
}

// Column widths for toolchain tables.
const (
	indexWidth   = 3
	minIDWidth   = 16
	maxIDWidth   = 40
	channelWidth = 9
)

// Render draws the whole console for m. It reads only m and f.
func Render(m Model, f Frame) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("tcon"))
	b.WriteByte('\n')
	b.WriteString(mutedText.Render(strings.Repeat("─", 22)))
	b.WriteByte('\n')
	b.WriteString(headerStyle.Render(Header(m.Screen)))
	b.WriteByte('\n')
	if m.Message != "" {
		b.WriteString(m.Message)
		b.WriteByte('\n')
	}
	b.WriteByte('\n')
	b.WriteString(renderBody(m, f))
	b.WriteString("\n\n")
	b.WriteString(mutedText.Render("Path: " + Breadcrumb(m.Screen)))
	if f.Help != "" {
		b.WriteByte('\n')
		b.WriteString(f.Help)
	}
	return b.String()
}

func renderBody(m Model, f Frame) string {
	switch s := m.Screen.(type) {
	case MenuScreen:
		return renderMenu(m)
	case ListScreen:
		return renderList(m, f, "No toolchains installed", "Choose Install (2) from the menu to add one.")
	case InstallListScreen:
		return renderList(m, f, "No available toolchains fetched.", "Press m to enter one manually or r to refresh.")
	case DetailScreen:
		return renderDetail(m, s.Toolchain, f.Now)
	case InputScreen:
		return renderInput(m, s.Kind)
	case ProgressScreen:
		return renderProgress(m, s, f)
	case ResultScreen:
		return renderResult(m, s)
	case ErrorScreen:
		return renderError(s.Session)
	default:
		return ""
	}
}

func renderMenu(m Model) string {
	var b strings.Builder
	b.WriteString("1) List & switch toolchains\n")
	b.WriteString("2) Install toolchain\n")
	b.WriteString("3) Uninstall toolchain\n")
	b.WriteString("4) Update toolchain\n")
	b.WriteString("5) Switch toolchain\n")
	b.WriteString("0) Exit")
	if len(m.Toolchains) > 0 {
		active := "none"
		for _, r := range m.Toolchains {
			if r.Active {
				active = r.ID
				break
			}
		}
		b.WriteString("\n\n")
		b.WriteString(mutedText.Render(fmt.Sprintf("Installed: %d · Active: %s", len(m.Toolchains), active)))
	}
	return b.String()
}

func idColumnWidth(width int) int {
	if width <= 0 {
		return minIDWidth + 8
	}
	return min(max(width-indexWidth-channelWidth-20, minIDWidth), maxIDWidth)
}

func renderList(m Model, f Frame, emptyTitle, emptyGuidance string) string {
	var b strings.Builder

	filterLine := "Filter: " + m.Filter
	if m.Filtering {
		b.WriteString(filterActive.Render(filterLine + "▏"))
	} else if m.Filter != "" {
		b.WriteString(filterActive.Render(filterLine))
	} else {
		b.WriteString(mutedText.Render(filterLine))
	}
	b.WriteString("\n\n")

	rows := m.Rows()
	if len(rows) == 0 {
		if len(m.collection()) > 0 {
			fmt.Fprintf(&b, "No toolchains match %q.\n", m.Filter)
			b.WriteString(mutedText.Render("Esc clears the filter."))
			return b.String()
		}
		b.WriteString(emptyTitle)
		b.WriteByte('\n')
		b.WriteString(mutedText.Render(emptyGuidance))
		return b.String()
	}

	idw := idColumnWidth(f.Width)
	header := fmt.Sprintf("  %*s %s %s %s", indexWidth, "#", runewidth.FillRight("ID", idw), runewidth.FillRight("Channel", channelWidth), "Status")
	b.WriteString(mutedText.Render(header))
	b.WriteByte('\n')
	b.WriteString(mutedText.Render(strings.Repeat("─", runewidth.StringWidth(header))))

	start, end := m.VisibleRange()
	for i := start; i < end; i++ {
		r := rows[i]
		b.WriteByte('\n')
		id := runewidth.FillRight(runewidth.Truncate(r.ID, idw, "…"), idw)
		line := fmt.Sprintf("%*d %s %s %s",
			indexWidth, i+1,
			idStyle.Render(id),
			mutedText.Render(runewidth.FillRight(string(r.Channel), channelWidth)),
			statusStyle(r).Render(r.StatusLabel()),
		)
		if i == m.Focus {
			b.WriteString(focusedRow.Render(CursorMarker) + line)
		} else {
			b.WriteString("  " + line)
		}
	}
	if end-start < len(rows) {
		b.WriteByte('\n')
		b.WriteString(mutedText.Render(fmt.Sprintf("showing %d-%d of %d", start+1, end, len(rows))))
	}
	return b.String()
}

func renderDetail(m Model, r ToolchainRecord, now time.Time) string {
	var lines []string
	lines = append(lines, idStyle.Render("Toolchain: "+r.ID))
	if r.Version != "" {
		lines = append(lines, "Version: "+r.Version)
	}
	lines = append(lines, mutedText.Render("Channel: "+string(r.Channel)))
	lines = append(lines, "Status: "+statusStyle(r).Render(r.StatusLabel()))
	if r.Location != "" {
		lines = append(lines, "Location: "+r.Location)
	}
	if md := r.Metadata; md != nil {
		if !md.InstalledAt.IsZero() {
			when := md.InstalledAt.Format(time.DateTime)
			if !now.IsZero() {
				when += " (" + humanize.RelTime(md.InstalledAt, now, "ago", "from now") + ")"
			}
			lines = append(lines, "Installed: "+when)
		}
		if md.ChecksumVerified != nil {
			if *md.ChecksumVerified {
				lines = append(lines, "Checksum: verified")
			} else {
				lines = append(lines, warnStyle.Render("Checksum: not verified"))
			}
		}
		if md.Size != "" {
			lines = append(lines, mutedText.Render("Size: "+md.Size))
		}
	}
	if m.LastSession != nil {
		lines = append(lines, mutedText.Render("Last result: "+m.LastSession.StateDescription()))
	}
	return strings.Join(lines, "\n")
}

func renderInput(m Model, kind ActionKind) string {
	var b strings.Builder
	switch kind {
	case ActionInstall:
		b.WriteString("Install - enter toolchain identifier (blank = latest stable):")
	case ActionUpdate:
		b.WriteString("Update - enter toolchain identifier (blank = in-use):")
	case ActionUninstall:
		b.WriteString("Uninstall - enter toolchain identifier:")
	case ActionSwitch:
		b.WriteString("Switch - enter toolchain identifier:")
	default:
		b.WriteString(kind.Title() + ":")
	}
	b.WriteString("\n> ")
	b.WriteString(m.Input)
	b.WriteString("▏")
	if len(m.Suggestions) > 0 {
		b.WriteByte('\n')
		b.WriteString(warnStyle.Render("Did you mean: " + strings.Join(m.Suggestions, ", ")))
	}
	return b.String()
}

func renderProgress(m Model, s ProgressScreen, f Frame) string {
	var b strings.Builder
	label := s.Message
	if m.Active != nil {
		if r, ok := m.Active.State.(Running); ok {
			if r.Detail != "" {
				label = r.Detail
			}
			fmt.Fprintf(&b, "%s %s\n", f.Spinner, label)
			if f.Bar != "" {
				b.WriteString(f.Bar)
			} else {
				fmt.Fprintf(&b, "%d%%", r.Percent)
			}
			b.WriteString("\n\n")
			b.WriteString(mutedText.Render("Esc abandons the operation."))
			return b.String()
		}
	}
	fmt.Fprintf(&b, "%s %s", f.Spinner, label)
	if m.Active != nil {
		b.WriteString("\n\n")
		b.WriteString(mutedText.Render("Esc abandons the operation."))
	}
	return b.String()
}

func renderResult(m Model, s ResultScreen) string {
	out := s.Message
	if m.LastSession != nil {
		target := m.LastSession.Target
		if target == "" {
			target = "(default)"
		}
		out += "\n" + mutedText.Render(fmt.Sprintf("Last: %s %s", m.LastSession.Type, target))
	}
	return out
}

func renderError(s OperationSession) string {
	lines := []string{
		errorStyle.Render("Error:"),
		s.ErrorDescription(),
	}
	if p := s.LogFile(); p != "" {
		lines = append(lines, "Log: "+p)
	}
	lines = append(lines, "", "Options: r retry · c cancel · b back · y copy log path")
	return strings.Join(lines, "\n")
}
