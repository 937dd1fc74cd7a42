//go:build !linux

package main

import (
	"runtime"

	"golang.design/x/hotkey/mainthread"
)

func init() {
	runtime.LockOSThread()
}

func main() {
	// The hotkey library requires the OS main thread on macOS and Windows.
	mainthread.Init(run)
}
