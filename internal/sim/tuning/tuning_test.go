package tuning

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tuning.yaml")
	body := `
day_minutes: 720
victory_plots: 12
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.DayMinutes != 720 || got.VictoryPlots != 12 {
		t.Fatalf("overrides not applied: day_minutes=%d victory_plots=%d", got.DayMinutes, got.VictoryPlots)
	}

	def := Defaults()
	if got.CraftBaseSuccess != def.CraftBaseSuccess || got.XPPerLevel != def.XPPerLevel ||
		got.StuckDays != def.StuckDays {
		t.Fatalf("untouched fields lost their defaults: %+v", got)
	}
	if got.Digest == "" {
		t.Fatalf("digest not set")
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	got, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if !os.IsNotExist(err) {
		t.Fatalf("err = %v, want not-exist", err)
	}
	if got.DayMinutes != Defaults().DayMinutes {
		t.Fatalf("missing file should still yield defaults")
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tuning.yaml")
	if err := os.WriteFile(path, []byte("day_minutes: [oops"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("malformed yaml accepted")
	}
}

func TestDefaultsAreComplete(t *testing.T) {
	d := Defaults()
	if d.DayMinutes <= 0 || d.StartEnergyMax <= 0 || d.XPPerLevel <= 0 ||
		d.MiningTierSize <= 0 || d.StuckDays <= 0 || d.MaxDays <= 0 {
		t.Fatalf("defaults incomplete: %+v", d)
	}
	if d.VictoryPlots <= d.StartPlots {
		t.Fatalf("victory plots must exceed starting plots")
	}
}
