package devices

import (
	"errors"
	"fmt"
	"strings"

	"github.com/magma/magma-sub003/internal/acs"
	"github.com/magma/magma-sub003/pkg/tr069"
)

// ErrUnsupportedDevice is returned for devices no handler knows
var ErrUnsupportedDevice = errors.New("unsupported device")

// Vendor names
const (
	VendorBaicells  = "Baicells"
	VendorCavium    = "Cavium"
	VendorFreedomFi = "FreedomFi One"
)

// Organizationally unique identifiers announced in Inform DeviceId
const (
	ouiBaicells    = "48BF74"
	ouiBaicellsAlt = "34ED0B"
	ouiCavium      = "000FB7"
	ouiSercomm     = "000E8F"
)

// freedomFiSWPrefix marks Sercomm firmware built for FreedomFi One
const freedomFiSWPrefix = "TEST3920@"

// Registry identifies the vendor of a device from its first Inform
type Registry struct {
	baicells  *Baicells
	cavium    *Cavium
	freedomFi *FreedomFi
}

// NewRegistry creates a registry. grants may be nil, in which case
// FreedomFi radios keep their managed channel.
func NewRegistry(grants GrantRequester) *Registry {
	return &Registry{
		baicells:  NewBaicells(),
		cavium:    NewCavium(),
		freedomFi: NewFreedomFi(grants),
	}
}

// Handlers returns every vendor handler
func (r *Registry) Handlers() []acs.DeviceHandler {
	return []acs.DeviceHandler{r.baicells, r.cavium, r.freedomFi}
}

// FreedomFi returns the FreedomFi handler
func (r *Registry) FreedomFi() *FreedomFi {
	return r.freedomFi
}

// Identify picks the handler for a device. It satisfies acs.HandlerFactory.
func (r *Registry) Identify(inform *tr069.Inform) (acs.DeviceHandler, error) {
	id := inform.DeviceID
	oui := strings.ToUpper(id.OUI)

	switch {
	case oui == ouiBaicells || oui == ouiBaicellsAlt:
		return r.baicells, nil
	case oui == ouiCavium:
		return r.cavium, nil
	case oui == ouiSercomm:
		if strings.HasPrefix(inform.SoftwareVersion(), freedomFiSWPrefix) {
			return r.freedomFi, nil
		}
	case strings.Contains(strings.ToLower(id.Manufacturer), "baicells"):
		return r.baicells, nil
	case strings.Contains(strings.ToLower(id.Manufacturer), "cavium"):
		return r.cavium, nil
	}

	return nil, fmt.Errorf("%w: manufacturer=%q oui=%q productClass=%q sw=%q",
		ErrUnsupportedDevice, id.Manufacturer, id.OUI, id.ProductClass, inform.SoftwareVersion())
}
