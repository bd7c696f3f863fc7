// Package config handles loading and validating scene scheduler configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with environment variables
//   - Validation of required fields
//   - Default value handling
//
// The defaults alone are a complete configuration: OBS on localhost:4455,
// the three stock scene names, boundaries 06:00 / 18:00 / 22:00, a "Fade"
// transition and a 60 second polling interval. A config file is only needed
// to change those or to enable the optional sinks.
//
// Security Considerations:
//   - The OBS password should be set via SCENESCHED_OBS_PASSWORD
//   - The config file should have restricted permissions (0600)
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.OBS.Address())
package config
