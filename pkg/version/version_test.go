package version

import (
	"strings"
	"testing"
)

func TestGetVersionInfo(t *testing.T) {
	info := GetVersionInfo()
	for _, want := range []string{"voicelat", Version, GitCommit, "go"} {
		if !strings.Contains(info, want) {
			t.Errorf("version info %q missing %q", info, want)
		}
	}
}
