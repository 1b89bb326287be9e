//go:build !windows

package progress

import "os"

// enableWindowsANSI is a no-op off Windows; Unix terminals speak ANSI
// natively.
func enableWindowsANSI(f *os.File) {}
