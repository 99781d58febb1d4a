//go:build windows

package mapper

import (
	"unsafe"

	"github.com/kbinani/screenshot"
	"golang.org/x/sys/windows"
)

var (
	user32               = windows.NewLazySystemDLL("user32.dll")
	shcore               = windows.NewLazySystemDLL("Shcore.dll")
	procMonitorFromPoint = user32.NewProc("MonitorFromPoint")
	procGetDpiForMonitor = shcore.NewProc("GetDpiForMonitor")
)

const (
	monitorDefaultToNearest = 2
	mdtEffectiveDpi         = 0
	baseDpi                 = 96.0
)

type winPoint struct {
	x int32
	y int32
}

// displayScale queries the effective DPI of the monitor and reports it as a
// scale factor relative to 96 DPI. Falls back to 1.0 when the Shcore API is
// unavailable (pre-8.1) or the query fails.
func displayScale(index int) float64 {
	if procGetDpiForMonitor.Find() != nil {
		return 1.0
	}

	b := screenshot.GetDisplayBounds(index)
	pt := winPoint{
		x: int32(b.Min.X + b.Dx()/2),
		y: int32(b.Min.Y + b.Dy()/2),
	}
	hmon, _, _ := procMonitorFromPoint.Call(
		uintptr(uint64(uint32(pt.x))|uint64(uint32(pt.y))<<32),
		uintptr(monitorDefaultToNearest),
	)
	if hmon == 0 {
		return 1.0
	}

	var dpiX, dpiY uint32
	ret, _, _ := procGetDpiForMonitor.Call(
		hmon,
		uintptr(mdtEffectiveDpi),
		uintptr(unsafe.Pointer(&dpiX)),
		uintptr(unsafe.Pointer(&dpiY)),
	)
	if ret != 0 || dpiX == 0 {
		return 1.0
	}
	return float64(dpiX) / baseDpi
}
