//go:build linux

package input

import "testing"

func TestEvdevToHID_KnownScancode(t *testing.T) {
	code, ok := evdevToHID(30) // KEY_A
	if !ok || code != KeyA {
		t.Fatalf("expected KeyA for scancode 30, got %v %v", code, ok)
	}
}

func TestEvdevToHID_UnknownScancodeFails(t *testing.T) {
	if _, ok := evdevToHID(0xFFFF); ok {
		t.Fatalf("expected unknown scancode to be unmapped")
	}
}

func TestHidToEvdev_RoundTripsEveryMappedKey(t *testing.T) {
	for native, hid := range evdevToHIDTable {
		got, ok := hidToEvdev(hid)
		if !ok || got != native {
			t.Fatalf("round trip for HID %#x: got native %#x ok=%v, want %#x", hid, got, ok, native)
		}
	}
}
