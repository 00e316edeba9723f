//go:build gui

package gui

import (
	"strings"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"
	"github.com/go-gl/glfw/v3.3/glfw"

	"voxverify/controller"
	"voxverify/visualizer"
)

const logLines = 200

type App struct {
	fyneApp fyne.App
	window  fyne.Window
	view    *FrameView
	button  *widget.Button
	status  *widget.Label
	logText *widget.Label
	onReady func()

	mu       sync.Mutex
	onToggle func()
	onQuit   func()
	logs     []string
}

func NewApp(onReady func()) *App {
	return &App{onReady: onReady}
}

func (a *App) OnToggle(fn func()) {
	a.mu.Lock()
	a.onToggle = fn
	a.mu.Unlock()
}

func (a *App) OnQuit(fn func()) {
	a.mu.Lock()
	a.onQuit = fn
	a.mu.Unlock()
}

func (a *App) toggle() {
	a.mu.Lock()
	fn := a.onToggle
	a.mu.Unlock()
	if fn != nil {
		go fn()
	}
}

func (a *App) quit() {
	a.mu.Lock()
	fn := a.onQuit
	a.mu.Unlock()
	if fn != nil {
		go fn()
		return
	}
	a.fyneApp.Quit()
}

func Run(a *App) error {
	a.fyneApp = app.NewWithID("io.voxverify.gui")
	a.fyneApp.Settings().SetTheme(verifyTheme{})
	icon := appIcon()
	a.fyneApp.SetIcon(icon)

	if desk, ok := a.fyneApp.(desktop.App); ok {
		menu := fyne.NewMenu("voxverify",
			fyne.NewMenuItem("Validate", a.toggle),
			fyne.NewMenuItem("Quit", a.quit),
		)
		desk.SetSystemTrayMenu(menu)
		desk.SetSystemTrayIcon(icon)
	}

	a.window = a.fyneApp.NewWindow("voxverify")
	opts := visualizer.DefaultSphereOptions()
	a.view = NewFrameView(opts.Width, opts.Height)
	a.button = widget.NewButton("Validate", a.toggle)
	a.button.Importance = widget.HighImportance
	a.status = widget.NewLabel(controller.StatusWelcome)
	a.status.Alignment = fyne.TextAlignCenter
	a.status.Wrapping = fyne.TextWrapWord
	a.logText = widget.NewLabel("")
	a.logText.Wrapping = fyne.TextWrapWord

	logScroll := container.NewVScroll(a.logText)
	logScroll.SetMinSize(fyne.NewSize(0, 160))
	debug := widget.NewAccordion(widget.NewAccordionItem("Debug log", logScroll))

	a.window.SetContent(container.NewVBox(
		container.NewCenter(a.view),
		a.button,
		a.status,
		debug,
	))
	a.window.SetCloseIntercept(a.quit)
	a.window.SetFixedSize(true)

	// Place the window bottom-center of the primary work area
	size := a.window.Content().MinSize()
	a.window.Resize(size)
	if monitor := glfw.GetPrimaryMonitor(); monitor != nil {
		_, _, screenW, screenH := monitor.GetWorkarea()
		posX := (screenW - int(size.Width)) / 2
		posY := screenH - int(size.Height) - 20
		a.window.Show()
		fyne.Do(func() {
			if glfwWin := glfw.GetCurrentContext(); glfwWin != nil {
				glfwWin.SetPos(posX, posY)
			}
		})
	} else {
		a.window.Show()
	}

	go a.onReady()

	a.fyneApp.Run()
	return nil
}

func (a *App) Quit() {
	if a.fyneApp != nil {
		fyne.Do(a.fyneApp.Quit)
	}
}

// controller.Sink implementation. Calls arrive on controller goroutines.

func (a *App) StateChanged(s controller.State) {
	fyne.Do(func() {
		switch s {
		case controller.Recording:
			a.button.SetText("Stop Recording")
			a.button.Importance = widget.DangerImportance
			a.button.Enable()
		case controller.Initializing, controller.Processing:
			a.button.SetText("Validate")
			a.button.Importance = widget.HighImportance
			a.button.Disable()
		default:
			a.button.SetText("Validate")
			a.button.Importance = widget.HighImportance
			a.button.Enable()
		}
		a.button.Refresh()
	})
}

func (a *App) Status(text string) {
	fyne.Do(func() {
		a.status.SetText(text)
	})
}

func (a *App) LogEntry(e controller.Entry) {
	a.mu.Lock()
	a.logs = append(a.logs, e.String())
	if len(a.logs) > logLines {
		a.logs = a.logs[len(a.logs)-logLines:]
	}
	text := strings.Join(a.logs, "\n")
	a.mu.Unlock()
	fyne.Do(func() {
		a.logText.SetText(text)
	})
}

func (a *App) Outcome(controller.Outcome) {}

func (a *App) Frame(f *visualizer.Frame) {
	a.view.SetFrame(f)
}
