package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestParseAppliesDefaults(t *testing.T) {
	cfg, err := Parse([]byte("server:\n  version: 1.2.0\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Server.Name != "enodebd" || cfg.TR069.Port != 48080 || cfg.TR069.Path != "/cwmp" {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if cfg.Status.ReportInterval != time.Minute {
		t.Errorf("report interval = %s", cfg.Status.ReportInterval)
	}
}

func TestParseEnvOverrides(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("ENODEBD_TR069_PORT", "7547")
	t.Setenv("ENODEBD_GPS_CACHE_FILE", "/tmp/gps")

	cfg, err := Parse([]byte("log:\n  level: info\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Log.Level != "debug" || cfg.TR069.Port != 7547 || cfg.Status.GPSCacheFile != "/tmp/gps" {
		t.Errorf("overrides not applied: %+v", cfg)
	}
}

func TestParseRejectsIncompleteForwarders(t *testing.T) {
	if _, err := Parse([]byte("integration:\n  mqtt:\n    enabled: true\n")); err == nil {
		t.Error("expected error for mqtt without broker")
	}
	if _, err := Parse([]byte("operators:\n  - username: admin\n    password_hash: x\n")); err == nil {
		t.Error("expected error for operators without jwt secret")
	}
}

func TestLoadManagedWithOverrides(t *testing.T) {
	doc := `
earfcndl: 44590
bandwidth_mhz: 20
subframe_assignment: 2
special_subframe_pattern: 7
pci: 260
cell_id: 138777000
tac: 1
plmnid: "00101"
mme_address: 192.168.60.142
allow_enodeb_transmit: true
enodebs:
  120200002618AGP0003:
    pci: 261
    allow_enodeb_transmit: false
`
	path := filepath.Join(t.TempDir(), "managed.yml")
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	mc, err := LoadManaged(path)
	if err != nil {
		t.Fatalf("LoadManaged: %v", err)
	}
	if mc.MMEPort != 36412 {
		t.Errorf("mme port default = %d", mc.MMEPort)
	}

	dev := mc.ForSerial("120200002618AGP0003")
	if dev.PCI != 261 || dev.AllowTransmit || dev.TAC != 1 {
		t.Errorf("override not applied: %+v", dev)
	}
	if other := mc.ForSerial("other"); other.PCI != 260 || !other.AllowTransmit {
		t.Errorf("shared values changed: %+v", other)
	}
	if s := mc.OverriddenSerials(); len(s) != 1 {
		t.Errorf("OverriddenSerials = %v", s)
	}
}
