// Package switcher runs the control loop that keeps OBS on the scene
// matching the current time window.
//
// Each tick evaluates the schedule against the wall clock. When the
// window differs from the one last applied, the controller asks OBS to
// switch program scene and then to select the configured transition,
// prints "Switched to scene: <name>" and remembers the window. When the
// window is unchanged no remote call is made.
//
// The remembered window starts as schedule.None, so the first tick after
// startup always applies a scene. Nothing is persisted across restarts.
//
// # Failure policy
//
// A failed remote call ends Run with an error and leaves the remembered
// window untouched. There is no retry and no reconnect; the caller is
// expected to release the OBS connection and exit.
//
// # Usage
//
//	ctrl, err := switcher.New(switcher.Config{
//	    Schedule:   schedule.Default(),
//	    Scenes:     scenes,
//	    Transition: "Fade",
//	    Interval:   time.Minute,
//	}, obsClient, switcher.WithLogger(log))
//	if err != nil {
//	    return err
//	}
//	return ctrl.Run(ctx)
package switcher
