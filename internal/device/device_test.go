package device

import "testing"

func TestResolveKnownProfile(t *testing.T) {
	p, err := Resolve("Kindle Scribe")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if p.Width != 1860 || p.Height != 2480 {
		t.Fatalf("got %dx%d, want 1860x2480", p.Width, p.Height)
	}
}

func TestResolveUnknownProfile(t *testing.T) {
	if _, err := Resolve("Kobo Libra"); err == nil {
		t.Fatal("Resolve() expected error for unknown device")
	}
}

func TestDefaultProfileExists(t *testing.T) {
	p, err := Resolve(DefaultProfile)
	if err != nil {
		t.Fatalf("default profile not in table: %v", err)
	}
	if p.Screen() != (Screen{Width: 1072, Height: 1448}) {
		t.Fatalf("unexpected default screen %+v", p.Screen())
	}
}
