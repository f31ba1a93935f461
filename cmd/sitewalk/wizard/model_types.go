// Package wizard implements the interactive inspection walkthrough as a
// bubbletea program. The model is a thin presentation layer: all workflow
// state lives in inspect.Runner, and the model translates key presses
// into runner calls and runner state into views.
package wizard

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	"go.uber.org/zap"

	"sitewalk/cmd/sitewalk/ui"
	"sitewalk/internal/api"
	"sitewalk/internal/domain"
	"sitewalk/internal/inspect"
	"sitewalk/internal/photos"
)

// InputMode tracks which overlay, if any, is capturing keystrokes.
type InputMode int

const (
	InputNormal InputMode = iota
	InputComment
	InputPhotoPath
	InputTicket
)

// selectFocus tracks which picker has focus on the selection screen.
type selectFocus int

const (
	focusLocations selectFocus = iota
	focusTemplates
	focusInspectors
)

// noticeLevel mirrors the api.Notifier severity split.
type noticeLevel int

const (
	noticeInfo noticeLevel = iota
	noticeWarn
	noticeError
)

type notice struct {
	level noticeLevel
	text  string
}

// channelNotifier satisfies api.Notifier by forwarding notices into a
// channel the running program drains. Sends never block: a stale notice
// is worth less than a stalled retry loop.
type channelNotifier struct {
	ch chan notice
}

func newChannelNotifier() *channelNotifier {
	return &channelNotifier{ch: make(chan notice, 16)}
}

func (n *channelNotifier) Info(msg string)  { n.send(notice{noticeInfo, msg}) }
func (n *channelNotifier) Warn(msg string)  { n.send(notice{noticeWarn, msg}) }
func (n *channelNotifier) Error(msg string) { n.send(notice{noticeError, msg}) }

func (n *channelNotifier) send(v notice) {
	select {
	case n.ch <- v:
	default:
	}
}

// Messages delivered by commands.

type loadDoneMsg struct {
	gen int
	err error
}

type scheduleDoneMsg struct {
	gen int
	err error
}

type submitDoneMsg struct {
	gen int
	err error
}

type ticketDoneMsg struct {
	err   error
	title string
}

type noticeMsg notice

type photosChangedMsg struct {
	key  domain.ResponseKey
	refs []string
}

type photoUploadErrMsg struct {
	err error
}

type photoDroppedMsg struct {
	path string
}

type advanceAfterDoneMsg struct{}

// list item wrappers for bubbles/list.

type locationItem struct{ loc domain.Location }

func (i locationItem) Title() string       { return i.loc.Name }
func (i locationItem) Description() string { return i.loc.Address }
func (i locationItem) FilterValue() string { return i.loc.Name }

type templateItem struct{ tpl domain.Template }

func (i templateItem) Title() string { return i.tpl.Name }
func (i templateItem) Description() string {
	return fmt.Sprintf("%d sections, %d items", len(i.tpl.Sections), i.tpl.ItemCount())
}
func (i templateItem) FilterValue() string { return i.tpl.Name }

type inspectorItem struct{ user domain.User }

func (i inspectorItem) Title() string       { return i.user.Name }
func (i inspectorItem) Description() string { return string(i.user.Role) }
func (i inspectorItem) FilterValue() string { return i.user.Name }

// photoUpdate joins the manager callbacks back onto the program loop.
type photoUpdate struct {
	key  domain.ResponseKey
	refs []string
	err  error
}

// Model is the bubbletea model for the walkthrough wizard.
type Model struct {
	ctx    context.Context
	runner *inspect.Runner
	client *api.Client
	logger *zap.Logger
	styles ui.Styles

	notifier *channelNotifier
	photoCh  chan photoUpdate
	watcher  *photos.Watcher

	// One upload queue per answered item, created on first attach.
	managers map[domain.ResponseKey]*photos.Manager

	resumeID string
	gen      int
	busy     bool
	busyText string

	mode InputMode

	// Selection screen.
	focus        selectFocus
	locations    list.Model
	templates    list.Model
	inspectors   list.Model
	pickersReady bool

	// Execution screen.
	itemIndex     int
	comment       textarea.Model
	photoPath     textinput.Model
	droppedPhotos []string

	// Ticket overlay.
	ticket *ticketForm

	// Review screen.
	review viewport.Model

	spinner  spinner.Model
	notices  []notice
	fatalErr error
	done     bool

	width  int
	height int
}

const (
	maxNotices      = 4
	doneLingerDelay = 1200 * time.Millisecond
)

// NewModel builds the wizard model. resumeID, when non-empty, switches
// the startup path from the catalog load to resuming that inspection.
// watcher may be nil when no photo drop directory is configured. The
// notifier must be the same one wired into the API client so rate-limit
// and server-error notices surface in the status area.
func NewModel(ctx context.Context, runner *inspect.Runner, client *api.Client, notifier api.Notifier, watcher *photos.Watcher, resumeID string, logger *zap.Logger) Model {
	cn, ok := notifier.(*channelNotifier)
	if !ok {
		cn = newChannelNotifier()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = ui.NewStyles().Info

	comment := textarea.New()
	comment.Placeholder = "Add a comment..."
	comment.SetHeight(3)
	comment.CharLimit = 500

	path := textinput.New()
	path.Placeholder = "/path/to/photo.jpg"
	path.CharLimit = 250

	return Model{
		ctx:       ctx,
		runner:    runner,
		client:    client,
		logger:    logger,
		styles:    ui.NewStyles(),
		notifier:  cn,
		photoCh:   make(chan photoUpdate, 16),
		watcher:   watcher,
		managers:  make(map[domain.ResponseKey]*photos.Manager),
		resumeID:  resumeID,
		busy:      true,
		busyText:  "Loading...",
		comment:   comment,
		photoPath: path,
		spinner:   sp,
	}
}

// NewNotifier returns a notifier suitable for wiring into api.New before
// the model exists. Pass the same value to NewModel.
func NewNotifier() api.Notifier { return newChannelNotifier() }

// FatalErr returns the error that ended the program, if any. The main
// package uses it to print a useful exit message after the alt screen
// is torn down.
func (m Model) FatalErr() error { return m.fatalErr }

// Close releases upload queues and the drop-directory watcher.
func (m *Model) Close() {
	for _, mgr := range m.managers {
		mgr.Close()
	}
	if m.watcher != nil {
		m.watcher.Close()
	}
}

func (m *Model) pushNotice(n notice) {
	m.notices = append(m.notices, n)
	if len(m.notices) > maxNotices {
		m.notices = m.notices[len(m.notices)-maxNotices:]
	}
}
