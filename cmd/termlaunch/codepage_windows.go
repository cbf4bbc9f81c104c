//go:build windows

package main

import "golang.org/x/sys/windows"

const utf8CodePage = 65001

// setConsoleUTF8 lets table borders and terminal names render correctly in
// legacy consoles.
func setConsoleUTF8() {
	_ = windows.SetConsoleOutputCP(utf8CodePage)
	_ = windows.SetConsoleCP(utf8CodePage)
}
