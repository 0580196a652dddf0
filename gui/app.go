//go:build gui

package gui

import (
	"image/color"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/theme"
	"github.com/go-gl/glfw/v3.3/glfw"

	"dictate/pipeline"
)

// doneLinger is how long "Done" stays up before the overlay hides.
const doneLinger = 800 * time.Millisecond

var (
	colorRecording  = color.RGBA{230, 40, 40, 255}
	colorProcessing = color.RGBA{255, 175, 0, 255}
	colorDone       = color.RGBA{60, 200, 90, 255}
)

type App struct {
	fyneApp fyne.App
	window  fyne.Window
	dot     *canvas.Circle
	text    *canvas.Text
	onReady func()

	mu     sync.Mutex
	anchor Anchor
	hide   *time.Timer
}

func NewApp(onReady func()) *App {
	return &App{onReady: onReady, anchor: ParseAnchor("")}
}

// SetPosition takes an overlay_position value.
func (a *App) SetPosition(pos string) {
	a.mu.Lock()
	a.anchor = ParseAnchor(pos)
	a.mu.Unlock()
}

func Run(a *App) error {
	a.fyneApp = app.NewWithID("io.dictate.gui")
	a.fyneApp.Settings().SetTheme(overlayTheme{})

	if desk, ok := a.fyneApp.(desktop.App); ok {
		menu := fyne.NewMenu("dictate",
			fyne.NewMenuItem("Quit", func() {
				a.fyneApp.Quit()
			}),
		)
		desk.SetSystemTrayMenu(menu)
		desk.SetSystemTrayIcon(theme.MediaRecordIcon())
	}

	if drv, ok := a.fyneApp.Driver().(desktop.Driver); ok {
		a.window = drv.CreateSplashWindow()
	} else {
		a.window = a.fyneApp.NewWindow("dictate")
	}

	a.dot = canvas.NewCircle(colorRecording)
	a.text = canvas.NewText("", theme.Color(theme.ColorNameForeground))
	a.text.TextStyle = fyne.TextStyle{Bold: true}

	content := container.NewPadded(container.NewHBox(
		container.NewCenter(container.NewGridWrap(fyne.NewSize(12, 12), a.dot)),
		a.text,
	))
	// size for the widest label
	a.text.Text = label(pipeline.Processing)
	a.window.SetContent(content)
	a.window.SetFixedSize(true)
	a.window.SetPadded(false)
	a.window.Resize(content.MinSize())

	go a.onReady()

	// the window stays hidden until the first recording
	a.fyneApp.Run()
	return nil
}

func (a *App) Quit() {
	if a.fyneApp != nil {
		a.fyneApp.Quit()
	}
}

// StateChanged may be called from any goroutine.
func (a *App) StateChanged(s pipeline.State) {
	a.mu.Lock()
	if a.hide != nil {
		a.hide.Stop()
		a.hide = nil
	}
	if s == pipeline.Done {
		a.hide = time.AfterFunc(doneLinger, func() { a.StateChanged(pipeline.Idle) })
	}
	a.mu.Unlock()

	text := label(s)
	fyne.Do(func() {
		if a.window == nil {
			return
		}
		if text == "" {
			a.window.Hide()
			return
		}
		switch s {
		case pipeline.Recording:
			a.dot.FillColor = colorRecording
		case pipeline.Processing:
			a.dot.FillColor = colorProcessing
		case pipeline.Done:
			a.dot.FillColor = colorDone
		}
		a.dot.Refresh()
		a.text.Text = text
		a.text.Refresh()
		a.show()
	})
}

// show must run on the fyne thread. The overlay is shown without taking
// focus so injected keystrokes still reach the target window.
func (a *App) show() {
	glfwWin := glfw.GetCurrentContext()
	if glfwWin == nil {
		a.window.Show()
		return
	}

	a.mu.Lock()
	anchor := a.anchor
	a.mu.Unlock()

	size := a.window.Canvas().Size()
	if m := glfw.GetPrimaryMonitor(); m != nil {
		ax, ay, aw, ah := m.GetWorkarea()
		x, y := anchor.Place(ax, ay, aw, ah, int(size.Width), int(size.Height))
		glfwWin.SetPos(x, y)
	}
	glfwWin.SetAttrib(glfw.FocusOnShow, glfw.False)
	glfwWin.SetAttrib(glfw.Floating, glfw.True)
	glfwWin.Show()
}
