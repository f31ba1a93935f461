package wizard

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"sitewalk/internal/domain"
	"sitewalk/internal/inspect"
)

// View renders the current wizard screen.
func (m Model) View() string {
	if m.done {
		return ""
	}

	var body string
	switch {
	case m.busy:
		body = m.viewBusy()
	case m.mode == InputTicket && m.ticket != nil:
		body = m.ticket.view(m.styles)
	case m.mode == InputComment:
		body = m.viewComment()
	case m.mode == InputPhotoPath:
		body = m.viewPhotoPath()
	default:
		switch m.runner.Phase() {
		case inspect.PhaseLocationSelect:
			body = m.viewSelect()
		case inspect.PhaseExecuting:
			body = m.viewExecute()
		case inspect.PhaseReviewing:
			body = m.viewReview()
		case inspect.PhaseDone:
			body = m.viewDone()
		case inspect.PhaseFailed:
			body = m.viewFailed()
		default:
			body = m.viewBusy()
		}
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		m.styles.Header.Render("sitewalk"),
		body,
		m.viewNotices(),
	)
}

func (m Model) viewBusy() string {
	text := m.busyText
	if text == "" {
		text = "Working..."
	}
	return fmt.Sprintf("\n  %s %s\n", m.spinner.View(), m.styles.Info.Render(text))
}

func (m Model) viewNotices() string {
	if len(m.notices) == 0 {
		return ""
	}
	var b strings.Builder
	for _, n := range m.notices {
		var line string
		switch n.level {
		case noticeError:
			line = m.styles.Error.Render("✗ " + n.text)
		case noticeWarn:
			line = m.styles.Warn.Render("! " + n.text)
		default:
			line = m.styles.Info.Render("• " + n.text)
		}
		b.WriteString(line + "\n")
	}
	return b.String()
}

// =============================================================================
// Selection
// =============================================================================

func (m Model) viewSelect() string {
	title := func(f selectFocus, l string) string {
		if m.focus == f {
			return m.styles.Selected.Render(l)
		}
		return m.styles.Muted.Render(l)
	}

	panes := []string{
		lipgloss.JoinVertical(lipgloss.Left, title(focusLocations, "Location"), m.locations.View()),
		lipgloss.JoinVertical(lipgloss.Left, title(focusTemplates, "Template"), m.templates.View()),
	}
	if m.showInspectors() {
		panes = append(panes,
			lipgloss.JoinVertical(lipgloss.Left, title(focusInspectors, "Assign to"), m.inspectors.View()))
	}

	help := "tab: switch pane • enter: start now • s: schedule for later • /: filter • q: quit"
	return lipgloss.JoinVertical(lipgloss.Left,
		m.styles.Title.Render("New inspection"),
		lipgloss.JoinHorizontal(lipgloss.Top, panes...),
		m.styles.Footer.Render(help),
	)
}

// =============================================================================
// Executing
// =============================================================================

func (m Model) viewExecute() string {
	section, idx := m.runner.Section()
	total := len(m.runner.Template().Sections)

	var b strings.Builder
	b.WriteString(m.styles.Title.Render(m.runner.Template().Name))
	b.WriteString("\n")
	b.WriteString(m.styles.Subtitle.Render(
		fmt.Sprintf("Section %d of %d: %s", idx+1, total, section.Name)))
	b.WriteString("\n\n")

	for i, item := range section.Items {
		cursor := "  "
		line := m.renderItemLine(section.ID, item)
		if i == m.itemIndex {
			cursor = m.styles.Selected.Render("> ")
		}
		b.WriteString(cursor + line + "\n")

		resp, ok := m.runner.Response(section.ID, item.ID)
		if ok && (resp.Comment != "" || len(resp.Photos) > 0) {
			detail := ""
			if resp.Comment != "" {
				detail = "💬 " + resp.Comment
			}
			if len(resp.Photos) > 0 {
				if detail != "" {
					detail += "  "
				}
				detail += fmt.Sprintf("📷 %d photo(s)", len(resp.Photos))
			}
			b.WriteString("     " + m.styles.Muted.Render(detail) + "\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("Running score: %s\n", m.styles.ScoreBadge(m.runner.Score())))

	help := "j/k: item • p: pass • f: fail • 1-5: rate • c: comment • a/d: photos • x: remove photo • n/b: section • q: quit"
	b.WriteString(m.styles.Footer.Render(help))
	return b.String()
}

func (m Model) renderItemLine(sectionID string, item domain.Item) string {
	grade := m.styles.Muted.Render("[ unanswered ]")
	if resp, ok := m.runner.Response(sectionID, item.ID); ok && resp.Value != "" {
		switch {
		case resp.Value.IsFail():
			grade = m.styles.Fail.Render("[ FAIL ]")
		case resp.Value.IsPass():
			grade = m.styles.Pass.Render("[ PASS ]")
		default:
			if n, ok := resp.Value.Rating(); ok {
				style := m.styles.Pass
				if n < 3 {
					style = m.styles.Fail
				} else if n == 3 {
					style = m.styles.Warn
				}
				grade = style.Render(fmt.Sprintf("[ %d/5 ]", n))
			}
		}
	}

	kind := "pass/fail"
	if item.Type == domain.ItemTypeRating {
		kind = "1-5"
	}
	return fmt.Sprintf("%s %s %s", grade, item.Name,
		m.styles.Muted.Render(fmt.Sprintf("(%s, w%g)", kind, item.EffectiveWeight())))
}

func (m Model) viewComment() string {
	_, item, _ := m.currentItem()
	return lipgloss.JoinVertical(lipgloss.Left,
		m.styles.Title.Render("Comment: "+item.Name),
		m.comment.View(),
		m.styles.Footer.Render("esc: save and close"),
	)
}

func (m Model) viewPhotoPath() string {
	_, item, _ := m.currentItem()
	return lipgloss.JoinVertical(lipgloss.Left,
		m.styles.Title.Render("Attach photo: "+item.Name),
		"  "+m.photoPath.View(),
		m.styles.Footer.Render("enter: upload • esc: cancel"),
	)
}

// =============================================================================
// Reviewing
// =============================================================================

func (m Model) viewReview() string {
	return lipgloss.JoinVertical(lipgloss.Left,
		m.styles.Title.Render("Review & submit"),
		m.review.View(),
		m.styles.Footer.Render("enter: submit • b: back to checklist • ↑/↓: scroll • q: quit"),
	)
}

// refreshReview rebuilds the summary markdown and re-renders it into the
// viewport. Rendering falls back to the raw markdown if glamour chokes.
func (m *Model) refreshReview() {
	md := reviewMarkdown(m.runner)
	width := m.review.Width
	if width <= 0 {
		width = 80
	}
	rendered := md
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err == nil {
		if out, rerr := renderer.Render(md); rerr == nil {
			rendered = out
		} else {
			m.logger.Debug("markdown render failed, using plain text")
		}
	}
	m.review.SetContent(rendered)
	m.review.GotoTop()
}

// reviewMarkdown summarizes every section for the final confirmation.
func reviewMarkdown(r *inspect.Runner) string {
	var b strings.Builder
	tpl := r.Template()

	fmt.Fprintf(&b, "# %s\n\n", tpl.Name)
	fmt.Fprintf(&b, "**Weighted score: %d%%**\n\n", r.Score())

	for _, section := range tpl.Sections {
		fmt.Fprintf(&b, "## %s\n\n", section.Name)
		for _, item := range section.Items {
			grade := "unanswered"
			comment := ""
			photoCount := 0
			if resp, ok := r.Response(section.ID, item.ID); ok && resp.Value != "" {
				switch {
				case resp.Value.IsFail():
					grade = "FAIL"
				case resp.Value.IsPass():
					grade = "pass"
				default:
					if n, ok := resp.Value.Rating(); ok {
						grade = fmt.Sprintf("%d/5", n)
					}
				}
				comment = resp.Comment
				photoCount = len(resp.Photos)
			}
			fmt.Fprintf(&b, "- **%s** — %s", item.Name, grade)
			if comment != "" {
				fmt.Fprintf(&b, " · %s", comment)
			}
			if photoCount > 0 {
				fmt.Fprintf(&b, " · %d photo(s)", photoCount)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	return b.String()
}

// =============================================================================
// Terminal screens
// =============================================================================

func (m Model) viewDone() string {
	return lipgloss.JoinVertical(lipgloss.Left,
		"",
		m.styles.Pass.Render("  ✓ Done."),
		m.styles.Muted.Render("  Returning to your inspection list..."),
	)
}

func (m Model) viewFailed() string {
	reason := "Something went wrong."
	if err := m.runner.Failure(); err != nil {
		reason = err.Error()
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		"",
		m.styles.Error.Render("  ✗ Cannot continue"),
		"  "+reason,
		m.styles.Footer.Render("press q to exit"),
	)
}
