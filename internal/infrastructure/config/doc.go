// Package config handles loading and validating the Toon bridge configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with environment variables
//   - Validation of required fields
//   - Default value handling
//
// The toon section is optional. When it is absent, or its credentials are
// incomplete, loading still succeeds and the bridge reports the problem as
// its connection status instead of refusing to start.
//
// Security Considerations:
//   - Toon client secret, password and tokens should be set via GRAYLOGIC_TOON_* variables
//   - The config file should have restricted permissions (0600)
//   - The admin API JWT secret belongs in GRAYLOGIC_API_JWT_SECRET
//   - Use ToonConfig.String when logging the section
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Bridge.ID)
package config
