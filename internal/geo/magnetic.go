package geo

import (
	"time"

	"github.com/westphae/geomag/pkg/egm96"
	"github.com/westphae/geomag/pkg/wmm"
)

// MagneticVariation returns the magnetic declination in degrees
// (+East, -West) for a position, altitude and date
func MagneticVariation(lat, lon, altFt float64, date time.Time) float64 {
	altM := altFt * 0.3048

	loc := egm96.NewLocationGeodetic(lat, lon, altM)

	mag, err := wmm.CalculateWMMMagneticField(loc, date)
	if err != nil {
		// Return 0 for safety if calculation fails
		return 0.0
	}

	return mag.D()
}

// TrueToMagnetic converts a true heading to magnetic at the given position
func TrueToMagnetic(trueHeading, lat, lon, altFt float64, date time.Time) float64 {
	mag := trueHeading - MagneticVariation(lat, lon, altFt, date)
	for mag < 0 {
		mag += 360
	}
	for mag >= 360 {
		mag -= 360
	}
	return mag
}
