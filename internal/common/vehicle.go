package common

import "strings"

// VehicleType is the closed set of vehicle categories a ranger can record.
type VehicleType string

const (
	VehicleCar        VehicleType = "car"
	VehicleMotorcycle VehicleType = "motorcycle"
	VehicleBus        VehicleType = "bus"
	VehicleTruck      VehicleType = "truck"
	VehicleVan        VehicleType = "van"
	VehicleTractor    VehicleType = "tractor"
	VehicleOther      VehicleType = "other"
)

var vehicleCodes = map[VehicleType]string{
	VehicleCar:        "CAR",
	VehicleMotorcycle: "MCY",
	VehicleBus:        "BUS",
	VehicleTruck:      "TRK",
	VehicleVan:        "VAN",
	VehicleTractor:    "TRC",
	VehicleOther:      "OTH",
}

// Code returns the fixed 3-letter wire code of the category.
// Unknown categories are reported as "OTH".
func (v VehicleType) Code() string {
	if c, ok := vehicleCodes[v]; ok {
		return c
	}
	return vehicleCodes[VehicleOther]
}

// Valid reports whether v belongs to the closed enumeration.
func (v VehicleType) Valid() bool {
	_, ok := vehicleCodes[v]
	return ok
}

// VehicleTypeFromCode maps a wire code back to its category. The second
// return value is false for unrecognized codes, in which case VehicleOther
// is returned.
func VehicleTypeFromCode(code string) (VehicleType, bool) {
	code = strings.ToUpper(code)
	for t, c := range vehicleCodes {
		if c == code {
			return t, true
		}
	}
	return VehicleOther, false
}

// ParseVehicleType accepts either a category name or its wire code.
func ParseVehicleType(s string) VehicleType {
	t := VehicleType(strings.ToLower(strings.TrimSpace(s)))
	if t.Valid() {
		return t
	}
	t, _ = VehicleTypeFromCode(strings.TrimSpace(s))
	return t
}
