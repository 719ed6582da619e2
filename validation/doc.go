// Package validation validates configuration values.
//
// Struct tag validation uses go-playground/validator; field names in
// messages are the mapstructure keys, so they match the config file:
//
//	type SourceConfig struct {
//	    PollInterval time.Duration `mapstructure:"poll_interval" validate:"gt=0"`
//	}
//	err := validation.Validate(cfg)
//
// Checks that tags cannot express go through a Validator:
//
//	v := validation.New()
//	v.OneOf("environment", env, []string{"development", "production"})
//	err := v.Validate()
//
// Both report an INVALID_CONFIG AppError.
package validation
