package tui

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/matheus3301/xmark/internal/api"
	"github.com/matheus3301/xmark/internal/tui/client"
	"github.com/matheus3301/xmark/internal/tui/keys"
	"github.com/matheus3301/xmark/internal/tui/model"
	"github.com/matheus3301/xmark/internal/tui/ui"
	"github.com/matheus3301/xmark/internal/tui/views"
	"github.com/rivo/tview"
)

const (
	requestTimeout  = 5 * time.Second
	refreshInterval = 5 * time.Second
)

// App is the main TUI application shell.
type App struct {
	app       *tview.Application
	pages     *ui.Pages
	theme     *ui.Theme
	vm        *model.ViewModel
	grpc      *client.Client
	registry  *keys.Registry
	windows   *model.Windows
	console   *Console
	flash     *ui.FlashModel
	windowBar *ui.WindowBar
	flashBar  *ui.FlashBar
	statusBar *views.StatusBar
	table     *views.BookmarkTable
	output    *tview.TextView
	input     *views.CommandInput
	roomViews map[string]*views.WindowView
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewApp creates the TUI application.
func NewApp(c *client.Client, accountName string) *App {
	ctx, cancel := context.WithCancel(context.Background())
	theme := ui.DefaultTheme()
	windows := model.NewWindows()

	a := &App{
		app:       tview.NewApplication(),
		pages:     ui.NewPages(),
		theme:     theme,
		vm:        model.NewViewModel(c),
		grpc:      c,
		registry:  keys.NewRegistry(),
		windows:   windows,
		console:   NewConsole(c, windows),
		flash:     ui.NewFlashModel(),
		windowBar: ui.NewWindowBar(theme),
		flashBar:  ui.NewFlashBar(theme),
		statusBar: views.NewStatusBar(),
		table:     views.NewBookmarkTable(theme),
		output:    tview.NewTextView().SetDynamicColors(true).SetScrollable(true).SetWordWrap(true),
		input:     views.NewCommandInput(),
		roomViews: make(map[string]*views.WindowView),
		ctx:       ctx,
		cancel:    cancel,
	}

	a.statusBar.SetAccount(accountName)
	a.setupBindings()
	a.setupCallbacks()
	a.setupLayout()

	return a
}

func (a *App) setupBindings() {
	a.registry.AddGlobal("next", &keys.Action{
		Key: tcell.KeyRight, Modifiers: tcell.ModAlt,
		Description: "alt+→:next", Visible: true,
		Handler: func() {
			a.windows.Next()
			a.render()
		},
	})
	a.registry.AddGlobal("input", &keys.Action{
		Rune: '/', Key: tcell.KeyRune,
		Description: "/:command", Visible: true,
		Handler: func() {
			a.input.SetText("/")
			a.app.SetFocus(a.input)
		},
	})
	a.registry.AddGlobal("quit", &keys.Action{
		Rune: 'q', Key: tcell.KeyRune,
		Description: "q:quit", Visible: true,
		Handler: func() { a.Stop() },
	})
	a.registry.AddScoped("console", "join", &keys.Action{
		Key:         tcell.KeyEnter,
		Description: "enter:join", Visible: true,
		Handler: func() {
			if room := a.table.SelectedRoom(); room != "" {
				a.submit("/bookmark join " + room)
			}
		},
	})
	a.registry.AddScoped("console", "remove", &keys.Action{
		Rune: 'd', Key: tcell.KeyRune,
		Description: "d:remove", Visible: true,
		Handler: func() {
			if room := a.table.SelectedRoom(); room != "" {
				a.input.SetText("/bookmark remove " + room)
				a.app.SetFocus(a.input)
			}
		},
	})
	a.registry.AddScoped("room", "close", &keys.Action{
		Rune: 'c', Key: tcell.KeyRune,
		Description: "c:close", Visible: true,
		Handler: func() { a.submit("/close") },
	})
	a.registry.AddScoped("window", "close", &keys.Action{
		Rune: 'c', Key: tcell.KeyRune,
		Description: "c:close", Visible: true,
		Handler: func() { a.submit("/close") },
	})
}

func (a *App) setupCallbacks() {
	a.input.SetOnSubmit(func(line string) {
		a.submit(line)
	})

	a.input.SetOnComplete(func(line string) {
		go func() {
			ctx, cancel := context.WithTimeout(a.ctx, requestTimeout)
			defer cancel()
			completed, ok, err := a.console.Complete(ctx, line)
			a.app.QueueUpdateDraw(func() {
				switch {
				case err != nil:
					a.flash.Err(err)
					a.flashBar.Update(a.flash.Get())
				case ok:
					a.input.SetText(completed)
				}
			})
		}()
	})

	a.input.SetOnEdit(func() {
		go func() {
			ctx, cancel := context.WithTimeout(a.ctx, requestTimeout)
			defer cancel()
			_ = a.console.EndCompletion(ctx)
		}()
	})

	a.pages.SetOnShow(func(string) {
		a.statusBar.SetHints(a.registry.Hints(model.KeyScope(a.windows.Current())))
	})
}

func (a *App) setupLayout() {
	consoleFlex := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(a.table, 0, 2, true).
		AddItem(a.output, 0, 1, false)
	a.output.SetBorder(true).SetTitle(" Console ")
	a.output.SetBorderColor(a.theme.BorderColor)

	a.pages.AddPage(model.PageName(model.Console{}), consoleFlex, true, false)
	a.pages.Show(model.PageName(model.Console{}))

	root := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(a.windowBar, 1, 0, false).
		AddItem(a.pages, 0, 1, true).
		AddItem(a.flashBar, 1, 0, false).
		AddItem(a.statusBar, 1, 0, false).
		AddItem(a.input, 1, 0, false)

	a.app.SetRoot(root, true)
	a.render()

	a.app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if event.Key() == tcell.KeyEscape {
			a.input.SetText("")
			a.focusWindow()
			return nil
		}

		// Let the input line handle all keys normally.
		if a.app.GetFocus() == a.input {
			return event
		}

		if a.registry.HandleEvent(model.KeyScope(a.windows.Current()), event) {
			return nil
		}
		return event
	})
}

// submit runs line. Window commands only touch local state and run right
// away on the draw goroutine; everything else goes to the daemon.
func (a *App) submit(line string) {
	if isWindowCommand(line) {
		a.show(a.console.Submit(a.ctx, line))
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(a.ctx, requestTimeout)
		defer cancel()
		reply := a.console.Submit(ctx, line)
		a.app.QueueUpdateDraw(func() { a.show(reply) })
		if strings.HasPrefix(line, "/bookmark") {
			a.reload()
		}
	}()
}

func (a *App) show(reply Reply) {
	if reply.Quit {
		a.Stop()
		return
	}
	if reply.Text != "" {
		a.appendOutput(reply.Text)
	}
	if reply.Text != "" || reply.Err != nil {
		a.flash.Outcome(reply.OK, firstLine(reply.Text), reply.Err)
	}
	a.render()
}

func isWindowCommand(line string) bool {
	cmd, ok := ParseCommand(line)
	return ok && slices.Contains([]string{"msg", "roomconfig", "xmlconsole", "win", "close", "quit", "help"}, cmd.Name)
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}

func (a *App) appendOutput(text string) {
	_, _ = fmt.Fprintf(a.output, "[::d]%s[-:-:-] %s\n", time.Now().Format("15:04:05"), tview.Escape(text))
	a.output.ScrollToEnd()
}

// render syncs pages, the window bar and the status line with the model.
// It must run on the draw goroutine.
func (a *App) render() {
	open := make(map[string]bool)
	tabs := make([]ui.WindowTab, 0)
	current := a.windows.Current()
	for _, w := range a.windows.All() {
		name := model.PageName(w)
		open[name] = true
		r, isRoom := w.(*model.Room)
		tabs = append(tabs, ui.WindowTab{
			Title:   model.Title(w),
			Current: w == current,
			Unread:  isRoom && r.Unread,
		})
		if _, ok := w.(model.Console); ok {
			continue
		}
		a.pages.Ensure(name, func() tview.Primitive {
			v := views.NewWindowView(w)
			a.roomViews[name] = v
			return v
		})
		a.updateWindowView(w)
	}
	for name := range a.roomViews {
		if !open[name] {
			a.pages.Drop(name)
			delete(a.roomViews, name)
		}
	}

	a.windowBar.Update(tabs)
	a.table.Update(a.vm.Bookmarks())
	a.statusBar.SetStatus(a.vm.Status())
	a.flashBar.Update(a.flash.Get())
	a.pages.Show(model.PageName(current))
	if a.app.GetFocus() != a.input {
		a.focusWindow()
	}
}

func (a *App) updateWindowView(w model.Window) {
	v, ok := a.roomViews[model.PageName(w)]
	if !ok {
		return
	}
	r, isRoom := w.(*model.Room)
	if !isRoom {
		v.Update(nil, false)
		return
	}
	var bm *api.Bookmark
	if b, found := a.vm.Bookmark(r.Room); found {
		bm = &b
	}
	v.Update(bm, slices.Contains(a.vm.Status().Rooms, r.Room))
}

func (a *App) focusWindow() {
	if _, ok := a.windows.Current().(model.Console); ok {
		a.app.SetFocus(a.table)
		return
	}
	if v, ok := a.roomViews[model.PageName(a.windows.Current())]; ok {
		a.app.SetFocus(v)
	}
}

// reload fetches bookmarks and status. The view model signals the refresh
// loop, which redraws.
func (a *App) reload() {
	ctx, cancel := context.WithTimeout(a.ctx, requestTimeout)
	defer cancel()
	var failed bool
	if err := a.vm.LoadBookmarks(ctx); err != nil {
		a.flash.Err(fmt.Errorf("load bookmarks: %w", err))
		failed = true
	}
	if err := a.vm.LoadStatus(ctx); err != nil {
		a.flash.Err(fmt.Errorf("load status: %w", err))
		failed = true
	}
	if failed {
		a.app.QueueUpdateDraw(a.render)
	}
}

func (a *App) handleEvent(evt api.Event) {
	switch {
	case evt.Kind == "ui.focus_room":
		a.app.QueueUpdateDraw(func() {
			r, created, err := a.console.FocusRoom(evt.Payload)
			if err != nil {
				a.flash.Err(err)
			} else if created {
				a.appendOutput("Opened window for " + r.Room)
			}
			a.render()
		})
		go a.reload()
	case strings.HasPrefix(evt.Kind, "bookmark."), strings.HasPrefix(evt.Kind, "session."):
		if evt.Kind == "bookmark.push_failed" {
			msg, _ := evt.Payload["error"].(string)
			a.flash.Warn("Bookmark push failed: " + msg)
		}
		go a.reload()
	}
}

// Run starts the TUI application.
func (a *App) Run() error {
	go func() {
		a.reload()
		a.appendOutputQueued("Type /help for commands.")

		go a.grpc.Watch(a.ctx, a.handleEvent, func(err error) {
			a.flash.Err(fmt.Errorf("event stream: %w", err))
		})
		a.startRefreshLoop()
	}()

	return a.app.Run()
}

func (a *App) appendOutputQueued(text string) {
	a.app.QueueUpdateDraw(func() { a.appendOutput(text) })
}

func (a *App) startRefreshLoop() {
	ticker := time.NewTicker(refreshInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				a.reload()
			case <-a.vm.RefreshCh():
				bookmarks := a.vm.Bookmarks()
				a.app.QueueUpdateDraw(func() {
					a.console.Annotate(bookmarks)
					a.render()
				})
			case <-a.ctx.Done():
				return
			}
		}
	}()
}

// Stop gracefully shuts down the TUI.
func (a *App) Stop() {
	a.cancel()
	a.app.Stop()
}
