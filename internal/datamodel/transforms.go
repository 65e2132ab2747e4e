package datamodel

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Bandwidths in MHz allowed for an LTE carrier, ascending
var Bandwidths = []float64{1.4, 3, 5, 10, 15, 20}

// resource blocks per bandwidth
var bandwidthRBs = map[float64]int{
	1.4: 6,
	3:   15,
	5:   25,
	10:  50,
	15:  75,
	20:  100,
}

// ValidBandwidth reports whether mhz is a legal carrier bandwidth
func ValidBandwidth(mhz float64) bool {
	_, ok := bandwidthRBs[mhz]
	return ok
}

// FloorBandwidth rounds mhz down to the nearest legal bandwidth
func FloorBandwidth(mhz float64) (float64, error) {
	idx := sort.SearchFloat64s(Bandwidths, mhz)
	if idx < len(Bandwidths) && Bandwidths[idx] == mhz {
		return mhz, nil
	}
	if idx == 0 {
		return 0, fmt.Errorf("bandwidth %v MHz below minimum", mhz)
	}
	return Bandwidths[idx-1], nil
}

// BandwidthRBs converts a bandwidth in MHz to resource blocks, rounding
// down out-of-table values
func BandwidthRBs(mhz float64) (int, error) {
	bw, err := FloorBandwidth(mhz)
	if err != nil {
		return 0, err
	}
	return bandwidthRBs[bw], nil
}

// BandwidthFromRBs converts a resource block count back to MHz
func BandwidthFromRBs(rbs int) (float64, error) {
	for mhz, n := range bandwidthRBs {
		if n == rbs {
			return mhz, nil
		}
	}
	return 0, fmt.Errorf("unknown resource block count %d", rbs)
}

// BandwidthCodeTransform maps MHz to codes like "n100" carried as strings.
// Lossy: out-of-table bandwidths round down.
func BandwidthCodeTransform() Transform {
	return Transform{
		WireType: TypeString,
		Lossy:    true,
		ToWire: func(v any) (any, error) {
			mhz, err := ToFloat(v)
			if err != nil {
				return nil, err
			}
			rbs, err := BandwidthRBs(mhz)
			if err != nil {
				return nil, err
			}
			return fmt.Sprintf("n%d", rbs), nil
		},
		ToSemantic: func(v any) (any, error) {
			s, ok := v.(string)
			if !ok || !strings.HasPrefix(s, "n") {
				return nil, fmt.Errorf("invalid bandwidth code %v", v)
			}
			var rbs int
			if _, err := fmt.Sscanf(s[1:], "%d", &rbs); err != nil {
				return nil, fmt.Errorf("invalid bandwidth code %q", s)
			}
			return BandwidthFromRBs(rbs)
		},
	}
}

// BandwidthRBTransform maps MHz to resource blocks carried as unsignedInt.
// Lossy like BandwidthCodeTransform.
func BandwidthRBTransform() Transform {
	return Transform{
		WireType: TypeUnsignedInt,
		Lossy:    true,
		ToWire: func(v any) (any, error) {
			mhz, err := ToFloat(v)
			if err != nil {
				return nil, err
			}
			return BandwidthRBs(mhz)
		},
		ToSemantic: func(v any) (any, error) {
			rbs, err := ToInt(v)
			if err != nil {
				return nil, err
			}
			return BandwidthFromRBs(rbs)
		},
	}
}

// GPSMillionthsTransform maps degrees to integer millionths of a degree
func GPSMillionthsTransform() Transform {
	return Transform{
		WireType: TypeInt,
		ToWire: func(v any) (any, error) {
			deg, err := ToFloat(v)
			if err != nil {
				return nil, err
			}
			if deg < -180 || deg > 180 {
				return nil, fmt.Errorf("coordinate %v out of range", deg)
			}
			return int(math.Round(deg * 1e6)), nil
		},
		ToSemantic: func(v any) (any, error) {
			n, err := ToInt(v)
			if err != nil {
				return nil, err
			}
			return float64(n) / 1e6, nil
		},
	}
}

// GPSDegreesTransform carries degrees as a decimal string
func GPSDegreesTransform() Transform {
	return Transform{
		WireType: TypeString,
		ToWire: func(v any) (any, error) {
			deg, err := ToFloat(v)
			if err != nil {
				return nil, err
			}
			return fmt.Sprintf("%.6f", deg), nil
		},
		ToSemantic: func(v any) (any, error) {
			s, ok := v.(string)
			if !ok {
				return nil, fmt.Errorf("want string, got %T", v)
			}
			if s == "" {
				return 0.0, nil
			}
			return ToFloat(s)
		},
	}
}

// EnumTransform maps a boolean to one of two wire strings. Any wire value
// other than onValue reads as false.
func EnumTransform(onValue, offValue string) Transform {
	return Transform{
		WireType: TypeString,
		Lossy:    true,
		ToWire: func(v any) (any, error) {
			b, ok := v.(bool)
			if !ok {
				return nil, fmt.Errorf("want bool, got %T", v)
			}
			if b {
				return onValue, nil
			}
			return offValue, nil
		},
		ToSemantic: func(v any) (any, error) {
			s, ok := v.(string)
			if !ok {
				return nil, fmt.Errorf("want string, got %T", v)
			}
			return strings.EqualFold(s, onValue), nil
		},
	}
}

// DuplexModeTransform maps "TDD"/"FDD" to vendor strings such as "TDDMode"
func DuplexModeTransform(suffix string) Transform {
	return Transform{
		WireType: TypeString,
		ToWire: func(v any) (any, error) {
			s, ok := v.(string)
			if !ok {
				return nil, fmt.Errorf("want string, got %T", v)
			}
			switch s {
			case "TDD", "FDD":
				return s + suffix, nil
			}
			return nil, fmt.Errorf("invalid duplex mode %q", s)
		},
		ToSemantic: func(v any) (any, error) {
			s, ok := v.(string)
			if !ok {
				return nil, fmt.Errorf("want string, got %T", v)
			}
			mode := strings.TrimSuffix(s, suffix)
			switch mode {
			case "TDD", "FDD":
				return mode, nil
			}
			return nil, fmt.Errorf("invalid duplex mode %q", s)
		},
	}
}
