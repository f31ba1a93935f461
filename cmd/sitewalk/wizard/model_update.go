package wizard

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"sitewalk/internal/api"
	"sitewalk/internal/domain"
	"sitewalk/internal/inspect"
)

// Init kicks off the startup load and arms the background listeners.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		m.spinner.Tick,
		m.loadCmd(m.gen),
		m.waitForNotice(),
		m.waitForPhotoUpdate(),
	}
	if c := m.waitForDroppedPhoto(); c != nil {
		cmds = append(cmds, c)
	}
	return tea.Batch(cmds...)
}

// Update is the bubbletea message dispatcher.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.resize()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case noticeMsg:
		m.pushNotice(notice(msg))
		return m, m.waitForNotice()

	case photosChangedMsg:
		m.runner.SetPhotos(msg.key.SectionID, msg.key.ItemID, msg.refs)
		if m.runner.Phase() == inspect.PhaseReviewing {
			m.refreshReview()
		}
		return m, m.waitForPhotoUpdate()

	case photoUploadErrMsg:
		m.pushNotice(notice{noticeError, "Photo upload failed. The attachment list is unchanged."})
		m.logger.Warn("photo upload failed", zap.Error(msg.err))
		return m, m.waitForPhotoUpdate()

	case photoDroppedMsg:
		m.droppedPhotos = append(m.droppedPhotos, msg.path)
		m.pushNotice(notice{noticeInfo, fmt.Sprintf("Photo detected: %s (press d to attach)", msg.path)})
		return m, m.waitForDroppedPhoto()

	case loadDoneMsg:
		return m.onLoadDone(msg)

	case scheduleDoneMsg:
		if msg.gen != m.gen {
			return m, nil
		}
		m.busy = false
		if msg.err != nil {
			return m.onOperationError(msg.err)
		}
		return m, lingerCmd()

	case submitDoneMsg:
		if msg.gen != m.gen {
			return m, nil
		}
		m.busy = false
		if msg.err != nil {
			return m.onOperationError(msg.err)
		}
		return m, lingerCmd()

	case ticketDoneMsg:
		return m.onTicketDone(msg)

	case advanceAfterDoneMsg:
		m.done = true
		return m, tea.Quit

	case tea.KeyMsg:
		return m.onKey(msg)
	}

	return m, nil
}

func (m Model) onLoadDone(msg loadDoneMsg) (tea.Model, tea.Cmd) {
	if msg.gen != m.gen {
		return m, nil
	}
	m.busy = false
	if msg.err != nil {
		return m.onOperationError(msg.err)
	}

	switch m.runner.Phase() {
	case inspect.PhaseLocationSelect:
		m.buildPickers()
	case inspect.PhaseExecuting:
		// Resumed straight into the walkthrough.
		m.itemIndex = 0
	}
	return m, nil
}

// onOperationError routes an async failure: session expiry and terminal
// wizard failures end the program, everything else stays on the current
// screen with the notice the runner already raised.
func (m Model) onOperationError(err error) (tea.Model, tea.Cmd) {
	if errors.Is(err, api.ErrSessionExpired) {
		m.fatalErr = err
		return m, tea.Quit
	}
	if m.runner.Phase() == inspect.PhaseFailed {
		return m, nil
	}
	m.logger.Warn("operation failed", zap.Error(err))
	return m, nil
}

func (m Model) onTicketDone(msg ticketDoneMsg) (tea.Model, tea.Cmd) {
	if m.ticket != nil {
		m.ticket.submitting = false
	}
	if msg.err != nil {
		m.pushNotice(notice{noticeError, "Failed to create ticket. You can retry or skip."})
		m.logger.Warn("ticket create failed", zap.Error(msg.err))
		if errors.Is(msg.err, api.ErrSessionExpired) {
			m.fatalErr = msg.err
			return m, tea.Quit
		}
		return m, nil
	}
	m.runner.ResolveTicket()
	m.ticket = nil
	m.mode = InputNormal
	m.pushNotice(notice{noticeInfo, fmt.Sprintf("Ticket filed: %s", msg.title)})
	return m, nil
}

// =============================================================================
// Key handling
// =============================================================================

func (m Model) onKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}
	if m.busy {
		return m, nil
	}

	switch m.mode {
	case InputTicket:
		return m.onTicketKey(msg)
	case InputComment:
		return m.onCommentKey(msg)
	case InputPhotoPath:
		return m.onPhotoPathKey(msg)
	}

	switch m.runner.Phase() {
	case inspect.PhaseLocationSelect:
		return m.onSelectKey(msg)
	case inspect.PhaseExecuting:
		return m.onExecuteKey(msg)
	case inspect.PhaseReviewing:
		return m.onReviewKey(msg)
	case inspect.PhaseFailed, inspect.PhaseDone:
		if msg.String() == "q" || msg.String() == "enter" || msg.String() == "esc" {
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m Model) onTicketKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.ticket == nil {
		m.mode = InputNormal
		return m, nil
	}
	submit, dismiss, cmd := m.ticket.update(msg)
	if dismiss {
		m.runner.DismissTicket()
		m.ticket = nil
		m.mode = InputNormal
		return m, nil
	}
	if submit {
		m.ticket.submitting = true
		return m, m.ticketCmd(m.ticket.draft)
	}
	return m, cmd
}

func (m Model) onCommentKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		// Save and close.
		key, item, ok := m.currentItem()
		if ok {
			text := strings.TrimSpace(m.comment.Value())
			existing, _ := m.runner.Response(key.SectionID, key.ItemID)
			draft, err := m.runner.Record(key.SectionID, key.ItemID, inspect.ResponseUpdate{
				Value:   existing.Value,
				Comment: &text,
			})
			if err != nil {
				m.logger.Warn("comment not saved", zap.String("item", item.ID), zap.Error(err))
			}
			if draft != nil {
				m.ticket = newTicketForm(draft)
				m.mode = InputTicket
				return m, nil
			}
		}
		m.mode = InputNormal
		return m, nil
	}
	var cmd tea.Cmd
	m.comment, cmd = m.comment.Update(msg)
	return m, cmd
}

func (m Model) onPhotoPathKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.mode = InputNormal
		return m, nil
	case "enter":
		path := strings.TrimSpace(m.photoPath.Value())
		m.mode = InputNormal
		if path == "" {
			return m, nil
		}
		return m.attachPhotos([]string{path})
	}
	var cmd tea.Cmd
	m.photoPath, cmd = m.photoPath.Update(msg)
	return m, cmd
}

func (m Model) onSelectKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Let an active list filter swallow everything except tab.
	if m.activeListFiltering() {
		return m.updateFocusedList(msg)
	}

	switch msg.String() {
	case "tab":
		m.cycleFocus(1)
		return m, nil
	case "shift+tab":
		m.cycleFocus(-1)
		return m, nil
	case "enter":
		return m.beginWalkthrough()
	case "s":
		return m.scheduleInspection()
	case "q":
		return m, tea.Quit
	}
	return m.updateFocusedList(msg)
}

func (m Model) onExecuteKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	section, _ := m.runner.Section()
	switch msg.String() {
	case "up", "k":
		if m.itemIndex > 0 {
			m.itemIndex--
		}
		return m, nil
	case "down", "j":
		if m.itemIndex < len(section.Items)-1 {
			m.itemIndex++
		}
		return m, nil
	case "p", "y":
		return m.gradeCurrent(domain.ValuePass)
	case "f":
		return m.gradeCurrent(domain.ValueFail)
	case "1", "2", "3", "4", "5":
		n, _ := strconv.Atoi(msg.String())
		return m.gradeCurrent(domain.RatingValue(n))
	case "c":
		return m.openComment()
	case "a":
		m.photoPath.SetValue("")
		m.photoPath.Focus()
		m.mode = InputPhotoPath
		return m, nil
	case "d":
		if len(m.droppedPhotos) == 0 {
			m.pushNotice(notice{noticeWarn, "No photos waiting in the drop directory."})
			return m, nil
		}
		paths := m.droppedPhotos
		m.droppedPhotos = nil
		return m.attachPhotos(paths)
	case "x":
		return m.removeLastPhoto()
	case "right", "n":
		m.runner.Next()
		m.itemIndex = 0
		if m.runner.Phase() == inspect.PhaseReviewing {
			m.refreshReview()
		}
		return m, nil
	case "left", "b":
		m.runner.Prev()
		m.itemIndex = 0
		return m, nil
	case "q":
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) onReviewKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.busy = true
		m.busyText = "Submitting..."
		return m, tea.Batch(m.spinner.Tick, m.submitCmd(m.gen))
	case "left", "b":
		m.runner.Prev()
		m.itemIndex = 0
		return m, nil
	case "q":
		return m, tea.Quit
	}
	var cmd tea.Cmd
	m.review, cmd = m.review.Update(msg)
	return m, cmd
}

// =============================================================================
// Actions
// =============================================================================

func (m Model) gradeCurrent(value domain.Value) (tea.Model, tea.Cmd) {
	key, item, ok := m.currentItem()
	if !ok {
		return m, nil
	}
	if item.Type == domain.ItemTypePassFail && !value.IsPass() && !value.IsFail() {
		return m, nil
	}
	if _, isRating := value.Rating(); item.Type == domain.ItemTypeRating && !isRating {
		return m, nil
	}

	draft, err := m.runner.Record(key.SectionID, key.ItemID, inspect.ResponseUpdate{Value: value})
	if err != nil {
		m.logger.Warn("grade not recorded", zap.Error(err))
		return m, nil
	}
	if draft != nil {
		m.ticket = newTicketForm(draft)
		m.mode = InputTicket
	}
	return m, nil
}

func (m Model) openComment() (tea.Model, tea.Cmd) {
	key, _, ok := m.currentItem()
	if !ok {
		return m, nil
	}
	existing, _ := m.runner.Response(key.SectionID, key.ItemID)
	m.comment.SetValue(existing.Comment)
	m.comment.Focus()
	m.mode = InputComment
	return m, nil
}

func (m Model) attachPhotos(paths []string) (tea.Model, tea.Cmd) {
	key, _, ok := m.currentItem()
	if !ok {
		return m, nil
	}
	mgr := m.managerFor(key)
	if err := mgr.Attach(paths); err != nil {
		m.pushNotice(notice{noticeError, err.Error()})
		return m, nil
	}
	m.pushNotice(notice{noticeInfo, fmt.Sprintf("Uploading %d photo(s)...", len(paths))})
	return m, nil
}

func (m Model) removeLastPhoto() (tea.Model, tea.Cmd) {
	key, _, ok := m.currentItem()
	if !ok {
		return m, nil
	}
	mgr, exists := m.managers[key]
	if !exists {
		existing, found := m.runner.Response(key.SectionID, key.ItemID)
		if !found || len(existing.Photos) == 0 {
			return m, nil
		}
		mgr = m.managerFor(key)
	}
	refs := mgr.Refs()
	if len(refs) == 0 {
		return m, nil
	}
	mgr.RemoveAt(len(refs) - 1)
	return m, nil
}

func (m Model) beginWalkthrough() (tea.Model, tea.Cmd) {
	locID, tplID, ok := m.selection()
	if !ok {
		m.pushNotice(notice{noticeWarn, "Pick a location and a template first."})
		return m, nil
	}
	if err := m.runner.Begin(locID, tplID); err != nil {
		m.pushNotice(notice{noticeError, err.Error()})
		return m, nil
	}
	m.itemIndex = 0
	return m, nil
}

func (m Model) scheduleInspection() (tea.Model, tea.Cmd) {
	locID, tplID, ok := m.selection()
	if !ok {
		m.pushNotice(notice{noticeWarn, "Pick a location and a template first."})
		return m, nil
	}
	inspectorID := ""
	if it, ok := m.inspectors.SelectedItem().(inspectorItem); ok {
		inspectorID = it.user.ID
	}
	m.busy = true
	m.busyText = "Scheduling..."
	return m, tea.Batch(m.spinner.Tick, m.scheduleCmd(m.gen, locID, tplID, inspectorID))
}

// =============================================================================
// Helpers
// =============================================================================

// currentItem resolves the highlighted checklist item.
func (m Model) currentItem() (domain.ResponseKey, domain.Item, bool) {
	section, _ := m.runner.Section()
	if m.itemIndex < 0 || m.itemIndex >= len(section.Items) {
		return domain.ResponseKey{}, domain.Item{}, false
	}
	item := section.Items[m.itemIndex]
	return domain.ResponseKey{SectionID: section.ID, ItemID: item.ID}, item, true
}

func (m Model) selection() (locationID, templateID string, ok bool) {
	loc, lok := m.locations.SelectedItem().(locationItem)
	tpl, tok := m.templates.SelectedItem().(templateItem)
	if !lok || !tok {
		return "", "", false
	}
	return loc.loc.ID, tpl.tpl.ID, true
}

func (m *Model) buildPickers() {
	delegate := list.NewDefaultDelegate()

	locItems := make([]list.Item, 0, len(m.runner.Locations()))
	for _, loc := range m.runner.Locations() {
		locItems = append(locItems, locationItem{loc: loc})
	}
	m.locations = list.New(locItems, delegate, 0, 0)
	m.locations.Title = "Location"
	m.locations.SetShowHelp(false)

	tplItems := make([]list.Item, 0, len(m.runner.Templates()))
	for _, tpl := range m.runner.Templates() {
		tplItems = append(tplItems, templateItem{tpl: tpl})
	}
	m.templates = list.New(tplItems, delegate, 0, 0)
	m.templates.Title = "Template"
	m.templates.SetShowHelp(false)

	userItems := make([]list.Item, 0, len(m.runner.Users()))
	for _, u := range m.runner.Users() {
		userItems = append(userItems, inspectorItem{user: u})
	}
	m.inspectors = list.New(userItems, delegate, 0, 0)
	m.inspectors.Title = "Assign to"
	m.inspectors.SetShowHelp(false)

	m.focus = focusLocations
	m.pickersReady = true
	m.resize()
}

func (m *Model) cycleFocus(dir int) {
	panes := 2
	if m.showInspectors() {
		panes = 3
	}
	m.focus = selectFocus((int(m.focus) + dir + panes) % panes)
}

func (m Model) showInspectors() bool {
	return len(m.runner.Users()) > 0
}

func (m Model) activeListFiltering() bool {
	switch m.focus {
	case focusLocations:
		return m.locations.FilterState() == list.Filtering
	case focusTemplates:
		return m.templates.FilterState() == list.Filtering
	case focusInspectors:
		return m.inspectors.FilterState() == list.Filtering
	}
	return false
}

func (m Model) updateFocusedList(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.focus {
	case focusLocations:
		m.locations, cmd = m.locations.Update(msg)
	case focusTemplates:
		m.templates, cmd = m.templates.Update(msg)
	case focusInspectors:
		m.inspectors, cmd = m.inspectors.Update(msg)
	}
	return m, cmd
}

func (m *Model) resize() {
	if m.width == 0 {
		return
	}
	if m.pickersReady {
		panes := 2
		if m.showInspectors() {
			panes = 3
		}
		paneWidth := m.width/panes - 2
		paneHeight := m.height - 10
		if paneHeight < 5 {
			paneHeight = 5
		}
		m.locations.SetSize(paneWidth, paneHeight)
		m.templates.SetSize(paneWidth, paneHeight)
		m.inspectors.SetSize(paneWidth, paneHeight)
	}

	m.review.Width = m.width - 4
	m.review.Height = m.height - 8
	if m.review.Height < 5 {
		m.review.Height = 5
	}
	m.comment.SetWidth(m.width - 8)
	m.photoPath.Width = m.width - 16
}
