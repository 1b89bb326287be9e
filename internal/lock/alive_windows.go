//go:build windows

package lock

import "syscall"

const processQueryLimitedInformation = 0x1000

var (
	kernel32        = syscall.NewLazyDLL("kernel32.dll")
	procOpenProcess = kernel32.NewProc("OpenProcess")
	procCloseHandle = kernel32.NewProc("CloseHandle")
)

// processAlive reports whether a process with the given PID exists.
// os.FindProcess succeeds on Windows even for dead PIDs, so ask the kernel.
func processAlive(pid int) bool {
	handle, _, _ := procOpenProcess.Call(processQueryLimitedInformation, 0, uintptr(pid))
	if handle == 0 {
		return false
	}
	procCloseHandle.Call(handle)
	return true
}
