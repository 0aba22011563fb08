package cli

// GlobalFlags holds flags available to all subcommands.
type GlobalFlags struct {
	Config  string `long:"config" description:"Path to config file" default:""`
	EnvFile string `long:"env-file" description:"Dotenv file with PAGETRACE_* overrides" default:".env"`
	JSON    bool   `long:"json" description:"Output in JSON format"`
	Verbose bool   `long:"verbose" description:"Enable verbose output"`
	Version bool   `long:"version" description:"Show version and exit"`
}

// ServeCommand hosts an instrumented page and serves the probe.
type ServeCommand struct {
	Page    string `long:"page" description:"HTML file to host (required)" required:"true"`
	Host    string `long:"host" description:"Override probe host"`
	Port    int    `long:"port" description:"Override probe port"`
	Backend string `long:"backend" description:"Event log backend: memory | sqlite"`

	globals *GlobalFlags
	version string
}

// WaitCommand polls a running probe until the page settles.
type WaitCommand struct {
	TimeoutMS  int    `long:"timeout-ms" description:"Quiet window the page must hold, in milliseconds"`
	IntervalMS int    `long:"interval-ms" description:"Delay between polls, in milliseconds"`
	Attempts   int    `long:"attempts" description:"Maximum number of polls"`
	Addr       string `long:"addr" description:"Probe base URL (default from config)"`

	globals *GlobalFlags
	version string
}

// EventsCommand prints the recorded event log.
type EventsCommand struct {
	Kind string `long:"kind" description:"Only events of this kind: click | keyup | scroll"`
	Addr string `long:"addr" description:"Probe base URL (default from config)"`

	globals *GlobalFlags
	version string
}

// StatusCommand shows probe status.
type StatusCommand struct {
	Addr string `long:"addr" description:"Probe base URL (default from config)"`

	globals *GlobalFlags
	version string
}

// AuditCommand reports selectors that would not resolve uniquely.
type AuditCommand struct {
	Page string `long:"page" description:"HTML file to audit (required)" required:"true"`

	globals *GlobalFlags
	version string
}
