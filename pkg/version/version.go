package version

// Current defines the application version.
// It defaults to "dev" but is overwritten by the Makefile using -ldflags.
var Current = "dev"

// AppName is used for telemetry service identification and user agents.
const AppName = "Stratoscan"
