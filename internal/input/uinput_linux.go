//go:build linux

package input

import (
	"fmt"
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
)

// uinput device constants (linux/input.h, linux/uinput.h). The kernel
// headers aren't exposed by x/sys/unix, so the ioctl numbers and struct
// layouts are reproduced by hand, the same way socketcan reproduces
// struct can_frame in this codebase.
const (
	uiSetEvBit  = 0x40045564
	uiSetKeyBit = 0x40045565
	uiSetRelBit = 0x40045566
	uiDevCreate = 0x5501
	uiDevDestroy = 0x5502

	evSyn = 0x00
	evKey = 0x01
	evRel = 0x02

	synReport = 0

	relX    = 0x00
	relY    = 0x01
	relWheel = 0x08

	btnLeft   = 0x110
	btnRight  = 0x111
	btnMiddle = 0x112
	btnSide   = 0x113
	btnExtra  = 0x114
)

// uinputUserDev mirrors struct uinput_user_dev. Name is fixed at 80 bytes
// by the kernel ABI.
type uinputUserDev struct {
	Name       [80]byte
	ID         struct{ Bustype, Vendor, Product, Version uint16 }
	FFEffectsMax uint32
	Absmax     [64]int32
	Absmin     [64]int32
	Absfuzz    [64]int32
	Absflat    [64]int32
}

type inputEvent struct {
	Time  unix.Timeval
	Type  uint16
	Code  uint16
	Value int32
}

func openUinput(name string, keyBits []uint16, relBits []uint16) (*os.File, error) {
	f, err := os.OpenFile("/dev/uinput", os.O_WRONLY|unix.O_NONBLOCK, 0)
	if err != nil {
		if os.IsPermission(err) {
			return nil, ErrPermissionDenied
		}
		if os.IsNotExist(err) {
			return nil, ErrDeviceNotFound
		}
		return nil, fmt.Errorf("open /dev/uinput: %w", err)
	}

	if err := ioctl(f, uiSetEvBit, uintptr(evKey)); err != nil {
		_ = f.Close()
		return nil, err
	}
	for _, k := range keyBits {
		if err := ioctl(f, uiSetKeyBit, uintptr(k)); err != nil {
			_ = f.Close()
			return nil, err
		}
	}
	if len(relBits) > 0 {
		if err := ioctl(f, uiSetEvBit, uintptr(evRel)); err != nil {
			_ = f.Close()
			return nil, err
		}
		for _, r := range relBits {
			if err := ioctl(f, uiSetRelBit, uintptr(r)); err != nil {
				_ = f.Close()
				return nil, err
			}
		}
	}

	var dev uinputUserDev
	copy(dev.Name[:], name)
	dev.ID.Bustype = 0x06 // BUS_VIRTUAL
	dev.ID.Vendor = 0x1
	dev.ID.Product = 0x1
	dev.ID.Version = 0x1

	if _, err := f.Write((*[unsafe.Sizeof(uinputUserDev{})]byte)(unsafe.Pointer(&dev))[:]); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("write uinput_user_dev: %w", err)
	}
	if err := ioctl(f, uiDevCreate, 0); err != nil {
		_ = f.Close()
		return nil, err
	}
	return f, nil
}

func closeUinput(f *os.File) error {
	_ = ioctl(f, uiDevDestroy, 0)
	return f.Close()
}

func ioctl(f *os.File, req uint, arg uintptr) error {
	if _, _, errno := unix.Syscall(unix.SYS_IOCTL, f.Fd(), uintptr(req), arg); errno != 0 {
		return errno
	}
	return nil
}

func writeEvent(f *os.File, evType, code uint16, value int32) error {
	ev := inputEvent{Type: evType, Code: code, Value: value}
	buf := (*[unsafe.Sizeof(inputEvent{})]byte)(unsafe.Pointer(&ev))[:]
	_, err := f.Write(buf)
	return err
}

func writeSync(f *os.File) error {
	return writeEvent(f, evSyn, synReport, 0)
}
