package registry

import "github.com/minidsp-audio/minidsp-go/pkg/units"

// analogToslinkSpdifUsb is the source set shared by the smaller
// two/four-channel products.
var analogToslinkSpdifUsb = []units.Source{
	units.SourceAnalog, units.SourceToslink, units.SourceSpdif, units.SourceUsb,
}

var analogToslinkSpdifUsbCodes = map[units.Source]byte{
	units.SourceAnalog:  0x00,
	units.SourceToslink: 0x01,
	units.SourceSpdif:   0x02,
	units.SourceUsb:     0x03,
}

// fullSourceSet is used by the larger multichannel products that expose
// every source variant.
var fullSourceSet = []units.Source{
	units.SourceAnalog, units.SourceToslink, units.SourceSpdif, units.SourceUsb,
	units.SourceAesEbu, units.SourceRca, units.SourceXlr, units.SourceLan,
	units.SourceI2S, units.SourceBluetooth,
}

var fullSourceSetCodes = map[units.Source]byte{
	units.SourceAnalog:   0x00,
	units.SourceToslink:  0x01,
	units.SourceSpdif:    0x02,
	units.SourceUsb:      0x03,
	units.SourceAesEbu:   0x04,
	units.SourceRca:      0x05,
	units.SourceXlr:      0x06,
	units.SourceLan:      0x07,
	units.SourceI2S:      0x08,
	units.SourceBluetooth: 0x09,
}
