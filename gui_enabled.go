//go:build gui

package main

import (
	"runtime"

	"voxverify/gui"
)

var guiApp *gui.App

func initGUI() {
	guiMode = true

	// Lock this goroutine to OS thread for Fyne/GLFW
	runtime.LockOSThread()

	guiApp = gui.NewApp(func() {
		run()
	})
	sink.add(guiApp)
	if err := gui.Run(guiApp); err != nil {
		panic(err)
	}
}

func attachGUI(toggle, quit func()) {
	if guiApp != nil {
		guiApp.OnToggle(toggle)
		guiApp.OnQuit(quit)
	}
}

func quitGUI() {
	if guiApp != nil {
		guiApp.Quit()
	}
}
