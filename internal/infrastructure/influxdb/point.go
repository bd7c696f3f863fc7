package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/obs-scene-scheduler/internal/switcher"
)

// MeasurementSceneSwitch is the measurement every applied switch is written to.
const MeasurementSceneSwitch = "scene_switch"

// switchPoint builds the point for sw. Window, scene and transition are
// tags; the previous window is a field to keep series cardinality low.
func switchPoint(sw switcher.Switch) *write.Point {
	at := sw.At
	if at.IsZero() {
		at = time.Now()
	}

	p := write.NewPointWithMeasurement(MeasurementSceneSwitch).
		AddTag("window", sw.Window.String()).
		AddTag("scene", sw.Scene).
		AddField("previous", sw.Previous.String()).
		AddField("value", 1).
		SetTime(at)
	if sw.Transition != "" {
		p.AddTag("transition", sw.Transition)
	}
	return p
}
