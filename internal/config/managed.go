package config

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// ManagedConfig is the centrally managed radio configuration shared by
// every eNodeB, with optional per-serial overrides
type ManagedConfig struct {
	EARFCNDL               int     `yaml:"earfcndl"`
	BandwidthMHz           float64 `yaml:"bandwidth_mhz"`
	SubframeAssignment     int     `yaml:"subframe_assignment"`
	SpecialSubframePattern int     `yaml:"special_subframe_pattern"`
	PCI                    int     `yaml:"pci"`
	CellID                 int     `yaml:"cell_id"`
	TAC                    int     `yaml:"tac"`
	PLMNID                 string  `yaml:"plmnid"`
	MMEAddress             string  `yaml:"mme_address"`
	MMEPort                int     `yaml:"mme_port"`
	AllowTransmit          bool    `yaml:"allow_enodeb_transmit"`

	PeriodicInformInterval int    `yaml:"periodic_inform_interval"`
	PerfMgmtUploadInterval int    `yaml:"perf_mgmt_upload_interval"`
	PerfMgmtUploadURL      string `yaml:"perf_mgmt_upload_url"`

	SAS     SASConfig                 `yaml:"sas"`
	Enodebs map[string]EnodebOverride `yaml:"enodebs"`
}

// SASConfig carries spectrum access registration settings
type SASConfig struct {
	Enabled       bool    `yaml:"enabled"`
	FCCID         string  `yaml:"fcc_id"`
	UserID        string  `yaml:"user_id"`
	Category      string  `yaml:"category"`
	Indoor        bool    `yaml:"indoor_deployment"`
	AntennaHeight float64 `yaml:"antenna_height"`
}

// EnodebOverride replaces managed values for one serial. Nil fields
// inherit the shared value.
type EnodebOverride struct {
	EARFCNDL               *int       `yaml:"earfcndl"`
	BandwidthMHz           *float64   `yaml:"bandwidth_mhz"`
	SubframeAssignment     *int       `yaml:"subframe_assignment"`
	SpecialSubframePattern *int       `yaml:"special_subframe_pattern"`
	PCI                    *int       `yaml:"pci"`
	CellID                 *int       `yaml:"cell_id"`
	TAC                    *int       `yaml:"tac"`
	AllowTransmit          *bool      `yaml:"allow_enodeb_transmit"`
	SAS                    *SASConfig `yaml:"sas"`
}

// LoadManaged loads the managed configuration document
func LoadManaged(filename string) (*ManagedConfig, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("read managed config: %w", err)
	}
	return ParseManaged(data)
}

// ParseManaged decodes a managed configuration document
func ParseManaged(data []byte) (*ManagedConfig, error) {
	var mc ManagedConfig
	if err := yaml.Unmarshal(data, &mc); err != nil {
		return nil, fmt.Errorf("unmarshal managed config: %w", err)
	}
	if mc.MMEPort == 0 {
		mc.MMEPort = 36412
	}
	if mc.PeriodicInformInterval == 0 {
		mc.PeriodicInformInterval = 60
	}
	if mc.PerfMgmtUploadInterval == 0 {
		mc.PerfMgmtUploadInterval = 300
	}
	return &mc, nil
}

// ForSerial returns the managed values with the serial's overrides applied
func (mc *ManagedConfig) ForSerial(serial string) ManagedConfig {
	out := *mc
	ov, ok := mc.Enodebs[serial]
	if !ok {
		return out
	}
	if ov.EARFCNDL != nil {
		out.EARFCNDL = *ov.EARFCNDL
	}
	if ov.BandwidthMHz != nil {
		out.BandwidthMHz = *ov.BandwidthMHz
	}
	if ov.SubframeAssignment != nil {
		out.SubframeAssignment = *ov.SubframeAssignment
	}
	if ov.SpecialSubframePattern != nil {
		out.SpecialSubframePattern = *ov.SpecialSubframePattern
	}
	if ov.PCI != nil {
		out.PCI = *ov.PCI
	}
	if ov.CellID != nil {
		out.CellID = *ov.CellID
	}
	if ov.TAC != nil {
		out.TAC = *ov.TAC
	}
	if ov.AllowTransmit != nil {
		out.AllowTransmit = *ov.AllowTransmit
	}
	if ov.SAS != nil {
		out.SAS = *ov.SAS
	}
	return out
}

// OverriddenSerials lists serials with per-device overrides, sorted
func (mc *ManagedConfig) OverriddenSerials() []string {
	serials := make([]string, 0, len(mc.Enodebs))
	for s := range mc.Enodebs {
		serials = append(serials, s)
	}
	sort.Strings(serials)
	return serials
}
