package session

import "errors"

// ErrUnsupportedFirmware is returned by Open when a probed device's
// hw_id is unknown to the registry, or its dsp_version falls outside
// the matched descriptor's declared firmware range and no ForceKind
// was supplied (spec.md §4.8).
var ErrUnsupportedFirmware = errors.New("session: unsupported firmware")
