package input

import "testing"

func TestRuneToKeycode_LettersAndDigits(t *testing.T) {
	if code, shifted, ok := runeToKeycode('a'); !ok || code != KeyA || shifted {
		t.Fatalf("unexpected result for 'a': %v %v %v", code, shifted, ok)
	}
	if code, shifted, ok := runeToKeycode('A'); !ok || code != KeyA || !shifted {
		t.Fatalf("unexpected result for 'A': %v %v %v", code, shifted, ok)
	}
	if code, _, ok := runeToKeycode('5'); !ok || code != Key5 {
		t.Fatalf("unexpected result for '5': %v %v", code, ok)
	}
	if code, shifted, ok := runeToKeycode('!'); !ok || code != Key1 || !shifted {
		t.Fatalf("unexpected result for '!': %v %v %v", code, shifted, ok)
	}
}

func TestRuneToKeycode_UnmappableReturnsFalse(t *testing.T) {
	if _, _, ok := runeToKeycode('€'); ok {
		t.Fatalf("expected euro sign to be unmappable")
	}
}

func TestKeycode_IsModifier(t *testing.T) {
	if !KeyLeftCtrl.IsModifier() || !KeyRightMeta.IsModifier() {
		t.Fatalf("expected modifier keycodes to report IsModifier")
	}
	if KeyA.IsModifier() {
		t.Fatalf("expected KeyA to not be a modifier")
	}
}
