package timezone

import "time"

var Location *time.Location

func init() {
	var err error
	Location, err = time.LoadLocation("America/Mexico_City")
	if err != nil {
		panic(err)
	}
}

// force the court's timezone regardless of where the server runs,
// otherwise date arithmetic on <time.Time>.Year()/Month()/Day() drifts
// when a box ends up in another region
func Now() time.Time {
	return time.Now().In(Location)
}
