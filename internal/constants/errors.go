package constants

import "errors"

// Configuration errors.
var (
	ErrNotAuthenticated    = errors.New("no credentials configured, use 'crm login' first")
	ErrUnknownConfigKey    = errors.New("unknown configuration key")
	ErrInvalidOutputFormat = errors.New("invalid output format, expected table, json or yaml")
)

// Login errors.
var (
	ErrMissingClientID     = errors.New("--client-id is required with --refresh-token")
	ErrMissingClientSecret = errors.New("--client-secret is required with --refresh-token")
	ErrMissingCredential   = errors.New("one of --refresh-token, --access-token or --auth-token is required")
)

// Input errors.
var (
	ErrEmptyRecordsInput = errors.New("no records found in input")
)
