//go:build windows

package progress

import (
	"os"
	"syscall"
	"unsafe"
)

var (
	kernel32       = syscall.NewLazyDLL("kernel32.dll")
	getConsoleMode = kernel32.NewProc("GetConsoleMode")
	setConsoleMode = kernel32.NewProc("SetConsoleMode")
)

const enableVirtualTerminalProcessing = 0x0004

// enableWindowsANSI turns on Virtual Terminal processing so the bars'
// ANSI escape sequences render on Windows consoles.
func enableWindowsANSI(f *os.File) {
	handle := f.Fd()
	var mode uint32
	r, _, _ := getConsoleMode.Call(handle, uintptr(unsafe.Pointer(&mode)))
	if r == 0 {
		return
	}
	setConsoleMode.Call(handle, uintptr(mode|enableVirtualTerminalProcessing))
}
