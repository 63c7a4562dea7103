package levy

import "strings"

// OccupancyType is the category of market space a trader occupies.
// It selects the applicable levy rate.
type OccupancyType string

const (
	OccupancyOpenSpace OccupancyType = "OPEN_SPACE"
	OccupancyKiosk     OccupancyType = "KIOSK"
	OccupancyShop      OccupancyType = "SHOP"
	OccupancyWarehouse OccupancyType = "WAREHOUSE"
)

var occupancyLabels = map[OccupancyType]string{
	OccupancyOpenSpace: "Open Space",
	OccupancyKiosk:     "Kiosk",
	OccupancyShop:      "Shop",
	OccupancyWarehouse: "Warehouse",
}

// AllOccupancyTypes returns every occupancy type
func AllOccupancyTypes() []OccupancyType {
	return []OccupancyType{OccupancyOpenSpace, OccupancyKiosk, OccupancyShop, OccupancyWarehouse}
}

// IsValid checks if the occupancy type is a known value
func (o OccupancyType) IsValid() bool {
	_, ok := occupancyLabels[o]
	return ok
}

// String returns the string representation of OccupancyType
func (o OccupancyType) String() string {
	return string(o)
}

// Label returns the human readable name shown on scan results
func (o OccupancyType) Label() string {
	if label, ok := occupancyLabels[o]; ok {
		return label
	}
	return string(o)
}

// ParseOccupancyType accepts the canonical value or a label such as "Open Space"
func ParseOccupancyType(s string) (OccupancyType, bool) {
	norm := strings.ToUpper(strings.TrimSpace(s))
	norm = strings.NewReplacer("-", "_", " ", "_").Replace(norm)
	if norm == "OPENSPACE" {
		norm = string(OccupancyOpenSpace)
	}
	o := OccupancyType(norm)
	return o, o.IsValid()
}
