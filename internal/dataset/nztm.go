package dataset

import "math"

// NZTM2000 (EPSG:2193) projection parameters on the GRS80 ellipsoid, per the
// LINZ projection definition.
const (
	grs80A            = 6378137.0
	grs80F            = 1 / 298.257222101
	nztmOriginLonDeg  = 173.0
	nztmFalseEasting  = 1600000.0
	nztmFalseNorthing = 10000000.0
	nztmScaleFactor   = 0.9996
)

var (
	grs80E2  = grs80F * (2 - grs80F) // first eccentricity squared
	grs80EP2 = grs80E2 / (1 - grs80E2)
)

// NZTMForward projects geographic WGS84 coordinates to NZTM2000 easting and
// northing. The metre-level difference between WGS84 and NZGD2000 is ignored,
// which is far below the resolution of a 250m grid.
func NZTMForward(lon, lat float64) (easting, northing float64) {
	phi := lat * math.Pi / 180
	lam := (lon - nztmOriginLonDeg) * math.Pi / 180

	sinPhi, cosPhi := math.Sin(phi), math.Cos(phi)
	tanPhi := sinPhi / cosPhi

	nu := grs80A / math.Sqrt(1-grs80E2*sinPhi*sinPhi)
	t := tanPhi * tanPhi
	c := grs80EP2 * cosPhi * cosPhi
	a := lam * cosPhi
	m := meridianArc(phi)

	a2 := a * a
	a3 := a2 * a
	easting = nztmFalseEasting + nztmScaleFactor*nu*(a+
		(1-t+c)*a3/6+
		(5-18*t+t*t+72*c-58*grs80EP2)*a3*a2/120)
	northing = nztmFalseNorthing + nztmScaleFactor*(m+
		nu*tanPhi*(a2/2+
			(5-t+9*c+4*c*c)*a2*a2/24+
			(61-58*t+t*t+600*c-330*grs80EP2)*a3*a3/720))
	return easting, northing
}

// NZTMInverse converts NZTM2000 easting/northing back to geographic
// longitude/latitude in degrees.
func NZTMInverse(easting, northing float64) (lon, lat float64) {
	e1 := (1 - math.Sqrt(1-grs80E2)) / (1 + math.Sqrt(1-grs80E2))
	m := (northing - nztmFalseNorthing) / nztmScaleFactor
	mu := m / (grs80A * (1 - grs80E2/4 - 3*grs80E2*grs80E2/64 - 5*grs80E2*grs80E2*grs80E2/256))

	phi1 := mu +
		(3*e1/2-27*e1*e1*e1/32)*math.Sin(2*mu) +
		(21*e1*e1/16-55*e1*e1*e1*e1/32)*math.Sin(4*mu) +
		(151*e1*e1*e1/96)*math.Sin(6*mu) +
		(1097*e1*e1*e1*e1/512)*math.Sin(8*mu)

	sinPhi1, cosPhi1 := math.Sin(phi1), math.Cos(phi1)
	tanPhi1 := sinPhi1 / cosPhi1

	c1 := grs80EP2 * cosPhi1 * cosPhi1
	t1 := tanPhi1 * tanPhi1
	nu1 := grs80A / math.Sqrt(1-grs80E2*sinPhi1*sinPhi1)
	rho1 := grs80A * (1 - grs80E2) / math.Pow(1-grs80E2*sinPhi1*sinPhi1, 1.5)
	d := (easting - nztmFalseEasting) / (nu1 * nztmScaleFactor)

	d2 := d * d
	d3 := d2 * d
	phi := phi1 - (nu1*tanPhi1/rho1)*(d2/2-
		(5+3*t1+10*c1-4*c1*c1-9*grs80EP2)*d2*d2/24+
		(61+90*t1+298*c1+45*t1*t1-252*grs80EP2-3*c1*c1)*d3*d3/720)
	lam := (d -
		(1+2*t1+c1)*d3/6 +
		(5-2*c1+28*t1-3*c1*c1+8*grs80EP2+24*t1*t1)*d3*d2/120) / cosPhi1

	lat = phi * 180 / math.Pi
	lon = nztmOriginLonDeg + lam*180/math.Pi
	return lon, lat
}

// meridianArc returns the ellipsoidal meridian arc length from the equator.
func meridianArc(phi float64) float64 {
	e2 := grs80E2
	e4 := e2 * e2
	e6 := e4 * e2
	return grs80A * ((1-e2/4-3*e4/64-5*e6/256)*phi -
		(3*e2/8+3*e4/32+45*e6/1024)*math.Sin(2*phi) +
		(15*e4/256+45*e6/1024)*math.Sin(4*phi) -
		(35*e6/3072)*math.Sin(6*phi))
}
