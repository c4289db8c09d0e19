package version

import (
	"runtime"
	"testing"
)

func TestGet(t *testing.T) {
	info := Get()

	if info.Version != Version {
		t.Errorf("Version = %q, want %q", info.Version, Version)
	}
	if info.GoVersion != runtime.Version() {
		t.Errorf("GoVersion = %q, want %q", info.GoVersion, runtime.Version())
	}
	if want := runtime.GOOS + "/" + runtime.GOARCH; info.Platform != want {
		t.Errorf("Platform = %q, want %q", info.Platform, want)
	}
}

func TestUserAgent(t *testing.T) {
	if got := UserAgent(); got != "go-deadlinejob/"+Version {
		t.Errorf("UserAgent() = %q", got)
	}
}

func TestStringFollowsVersion(t *testing.T) {
	saved := Version
	t.Cleanup(func() { Version = saved })

	Version = "1.4.0"
	if got := String(); got != "1.4.0" {
		t.Errorf("String() = %q, want 1.4.0", got)
	}
	if got := Get().Version; got != "1.4.0" {
		t.Errorf("Get().Version = %q, want 1.4.0", got)
	}
}
