package archive

import "testing"

func TestIsLegacyFormatDetectsMarker(t *testing.T) {
	if !isLegacyFormat([]byte("MD5SUM = abcdef")) {
		t.Fatal("expected legacy marker to be detected")
	}
}

func TestIsLegacyFormatRejectsModernHeader(t *testing.T) {
	if isLegacyFormat([]byte{0x00, 0x00, 0x00}) {
		t.Fatal("plain tar header must not be classified legacy")
	}
}
