// Package config handles loading and validating RF Socket Core configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with RFSOCKET_* environment variables
//   - Validation of required fields
//   - Default value handling
//
// Security Considerations:
//   - Sensitive values (JWT secret, MQTT and InfluxDB credentials, the
//     initial admin password) should be set via environment variables
//   - The config file should have restricted permissions (0600)
//
// Usage:
//
//	cfg, err := config.Load(config.Path())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Transmitter.Binary)
package config
