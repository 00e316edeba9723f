//go:build !gui

package main

func initGUI() {
	panic("voxverify: built without GUI support (rebuild with -tags gui)")
}

func attachGUI(toggle, quit func()) {}

func quitGUI() {}
