// Package config handles loading and validating the DHD800 bridge
// configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with environment variables (DHD800_* pattern)
//   - Validation of required fields
//   - Default value handling
//
// Sensitive values (the projector password, MQTT credentials, InfluxDB
// tokens) should be set via environment variables rather than committed
// to the config file.
//
// Configuration is loaded once at startup:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Projector.Host)
package config
