package wizard

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"sitewalk/internal/domain"
	"sitewalk/internal/photos"
	"sitewalk/internal/ticket"
)

// loadCmd performs the startup fetch: either the catalog for a new
// walkthrough or the resume path for an existing inspection. The
// generation tag lets Update discard results from an abandoned attempt.
func (m Model) loadCmd(gen int) tea.Cmd {
	runner, ctx, resumeID := m.runner, m.ctx, m.resumeID
	return func() tea.Msg {
		var err error
		if resumeID != "" {
			err = runner.LoadExisting(ctx, resumeID)
		} else {
			err = runner.LoadNew(ctx)
		}
		return loadDoneMsg{gen: gen, err: err}
	}
}

func (m Model) scheduleCmd(gen int, locationID, templateID, inspectorID string) tea.Cmd {
	runner, ctx := m.runner, m.ctx
	return func() tea.Msg {
		err := runner.Schedule(ctx, locationID, templateID, inspectorID)
		return scheduleDoneMsg{gen: gen, err: err}
	}
}

func (m Model) submitCmd(gen int) tea.Cmd {
	runner, ctx := m.runner, m.ctx
	return func() tea.Msg {
		err := runner.Submit(ctx)
		return submitDoneMsg{gen: gen, err: err}
	}
}

func (m Model) ticketCmd(draft *ticket.Draft) tea.Cmd {
	client, ctx := m.client, m.ctx
	return func() tea.Msg {
		_, err := draft.Submit(ctx, client)
		return ticketDoneMsg{err: err, title: draft.Title}
	}
}

// waitForNotice blocks until the API client reports something worth
// showing, then re-arms itself from Update.
func (m Model) waitForNotice() tea.Cmd {
	ch := m.notifier.ch
	return func() tea.Msg {
		return noticeMsg(<-ch)
	}
}

// waitForPhotoUpdate drains one upload-queue callback.
func (m Model) waitForPhotoUpdate() tea.Cmd {
	ch := m.photoCh
	return func() tea.Msg {
		u := <-ch
		if u.err != nil {
			return photoUploadErrMsg{err: u.err}
		}
		return photosChangedMsg{key: u.key, refs: u.refs}
	}
}

// waitForDroppedPhoto surfaces files appearing in the watch directory.
func (m Model) waitForDroppedPhoto() tea.Cmd {
	if m.watcher == nil {
		return nil
	}
	ch := m.watcher.Files()
	return func() tea.Msg {
		path, ok := <-ch
		if !ok {
			return nil
		}
		return photoDroppedMsg{path: path}
	}
}

func lingerCmd() tea.Cmd {
	return tea.Tick(doneLingerDelay, func(time.Time) tea.Msg {
		return advanceAfterDoneMsg{}
	})
}

// managerFor returns the upload queue for an item, creating it on first
// use. Each item gets its own serialized queue so attachments for one
// response never interleave with another's.
func (m *Model) managerFor(key domain.ResponseKey) *photos.Manager {
	if mgr, ok := m.managers[key]; ok {
		return mgr
	}
	k := key
	ch := m.photoCh
	mgr := photos.NewManager(m.client, func(refs []string) {
		select {
		case ch <- photoUpdate{key: k, refs: refs}:
		default:
		}
	}, m.logger)
	mgr.OnError(func(err error) {
		select {
		case ch <- photoUpdate{key: k, err: err}:
		default:
		}
	})
	if resp, ok := m.runner.Response(key.SectionID, key.ItemID); ok && len(resp.Photos) > 0 {
		mgr.Seed(resp.Photos)
	}
	m.managers[key] = mgr
	return mgr
}
