package wizard

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"sitewalk/cmd/sitewalk/ui"
	"sitewalk/internal/domain"
	"sitewalk/internal/ticket"
)

// field positions within the ticket form.
const (
	ticketFieldTitle = iota
	ticketFieldCategory
	ticketFieldPriority
	ticketFieldDescription
	ticketFieldCount
)

var ticketPriorities = []domain.TicketPriority{
	domain.TicketPriorityLow,
	domain.TicketPriorityMedium,
	domain.TicketPriorityHigh,
}

// ticketForm is the modal overlay opened when a failing grade warrants a
// maintenance ticket. It edits the runner's pending draft in place.
type ticketForm struct {
	draft *ticket.Draft

	title       textinput.Model
	category    textinput.Model
	description textinput.Model
	priorityIdx int

	focus      int
	submitting bool
}

func newTicketForm(draft *ticket.Draft) *ticketForm {
	title := textinput.New()
	title.SetValue(draft.Title)
	title.CharLimit = 120
	title.Focus()

	category := textinput.New()
	category.SetValue(draft.Category)
	category.CharLimit = 60

	description := textinput.New()
	description.SetValue(draft.Description)
	description.CharLimit = 500

	idx := 0
	for i, p := range ticketPriorities {
		if p == draft.Priority {
			idx = i
		}
	}

	return &ticketForm{
		draft:       draft,
		title:       title,
		category:    category,
		description: description,
		priorityIdx: idx,
	}
}

// apply copies the edited fields back onto the draft before submission.
func (f *ticketForm) apply() {
	f.draft.Title = strings.TrimSpace(f.title.Value())
	f.draft.Category = strings.TrimSpace(f.category.Value())
	f.draft.Description = strings.TrimSpace(f.description.Value())
	f.draft.Priority = ticketPriorities[f.priorityIdx]
}

func (f *ticketForm) setFocus(i int) {
	f.focus = (i + ticketFieldCount) % ticketFieldCount
	f.title.Blur()
	f.category.Blur()
	f.description.Blur()
	switch f.focus {
	case ticketFieldTitle:
		f.title.Focus()
	case ticketFieldCategory:
		f.category.Focus()
	case ticketFieldDescription:
		f.description.Focus()
	}
}

// update handles one key press. It returns submit=true when the form
// should be filed and dismiss=true when it should be skipped.
func (f *ticketForm) update(msg tea.KeyMsg) (submit, dismiss bool, cmd tea.Cmd) {
	if f.submitting {
		return false, false, nil
	}
	switch msg.String() {
	case "esc":
		return false, true, nil
	case "enter":
		f.apply()
		return true, false, nil
	case "tab", "down":
		f.setFocus(f.focus + 1)
		return false, false, nil
	case "shift+tab", "up":
		f.setFocus(f.focus - 1)
		return false, false, nil
	case "left":
		if f.focus == ticketFieldPriority {
			f.priorityIdx = (f.priorityIdx + len(ticketPriorities) - 1) % len(ticketPriorities)
			return false, false, nil
		}
	case "right":
		if f.focus == ticketFieldPriority {
			f.priorityIdx = (f.priorityIdx + 1) % len(ticketPriorities)
			return false, false, nil
		}
	}

	switch f.focus {
	case ticketFieldTitle:
		f.title, cmd = f.title.Update(msg)
	case ticketFieldCategory:
		f.category, cmd = f.category.Update(msg)
	case ticketFieldDescription:
		f.description, cmd = f.description.Update(msg)
	}
	return false, false, cmd
}

func (f *ticketForm) view(styles ui.Styles) string {
	var b strings.Builder

	b.WriteString(styles.Title.Render("Create maintenance ticket?"))
	b.WriteString("\n")
	b.WriteString(styles.Subtitle.Render(fmt.Sprintf("Failing item: %s", f.draft.ItemName)))
	b.WriteString("\n\n")

	label := func(i int, name string) string {
		if f.focus == i {
			return styles.Selected.Render("> " + name)
		}
		return styles.Muted.Render("  " + name)
	}

	b.WriteString(label(ticketFieldTitle, "Title"))
	b.WriteString("       " + f.title.View() + "\n")
	b.WriteString(label(ticketFieldCategory, "Category"))
	b.WriteString("    " + f.category.View() + "\n")

	b.WriteString(label(ticketFieldPriority, "Priority"))
	b.WriteString("    ")
	for i, p := range ticketPriorities {
		name := string(p)
		if i == f.priorityIdx {
			name = styles.Badge.Render(name)
		} else {
			name = styles.Muted.Render(name)
		}
		b.WriteString(name)
		if i < len(ticketPriorities)-1 {
			b.WriteString("  ")
		}
	}
	b.WriteString("\n")

	b.WriteString(label(ticketFieldDescription, "Description"))
	b.WriteString(" " + f.description.View() + "\n\n")

	if f.submitting {
		b.WriteString(styles.Info.Render("Filing ticket..."))
	} else {
		b.WriteString(styles.Footer.Render("enter: file ticket • esc: skip • tab: next field • ←/→: priority"))
	}

	return styles.Panel.Render(b.String())
}
