// Package influxdb records applied scene switches in InfluxDB v2 so switch
// timing can be graphed next to stream metrics.
//
// Each switch becomes one point in the scene_switch measurement:
//
//	scene_switch,scene=Evening\ Scene,transition=Fade,window=evening previous="daytime",value=1i
//
// Recorder implements switcher.Observer:
//
//	rec, err := influxdb.Open(cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer rec.Close()
//	rec.OnWriteError(func(err error) { log.Error("influx", "error", err) })
//
// Points are batched per batch_size and flush_interval. Record never
// blocks on the network, so failures arrive later through OnWriteError.
package influxdb
