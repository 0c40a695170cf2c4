package vocab

var defaultSeverities = []Severity{
	{Name: "DEBUG", Description: "Diagnostic detail for developers"},
	{Name: "INFO", Description: "Normal operational message"},
	{Name: "WARNING", Description: "Something unexpected that did not stop processing"},
	{Name: "ERROR", Description: "An operation failed"},
	{Name: "CRITICAL", Description: "The service is unusable"},
}

var defaultEventTypes = []EventType{
	{
		Name:        "LOGIN",
		Description: "User authentication attempt",
		Templates: []string{
			"User {n} logged in from terminal {n}",
			"Failed login attempt {n} for user {n}",
			"User {n} authenticated after {n} ms",
		},
	},
	{
		Name:        "LOGOUT",
		Description: "User session ended",
		Templates: []string{
			"User {n} logged out",
			"Session {n} expired after {n} minutes",
		},
	},
	{
		Name:        "FILE_ACCESS",
		Description: "File read or write",
		Templates: []string{
			"File {n} opened by process {n}",
			"Permission denied on file {n} for user {n}",
			"File {n} written, {n} blocks",
		},
	},
	{
		Name:        "NETWORK",
		Description: "Network connection activity",
		Templates: []string{
			"Connection from port {n} accepted",
			"Packet loss of {n} percent on interface {n}",
			"Connection {n} reset by peer",
		},
	},
	{
		Name:        "SYSTEM",
		Description: "Host level event",
		Templates: []string{
			"CPU usage at {n} percent",
			"Disk {n} at {n} percent capacity",
			"Service {n} restarted {n} times",
		},
	},
}

var defaultSources = []Source{
	{Name: "web-01", Description: "Public web server", IPAddress: "192.168.1.10", Location: Location{City: "Berlin", Country: "Germany"}},
	{Name: "web-02", Description: "Public web server", IPAddress: "192.168.1.11", Location: Location{City: "Munich", Country: "Germany"}},
	{Name: "db-01", Description: "Primary database", IPAddress: "192.168.2.20", Location: Location{City: "Vienna", Country: "Austria"}},
	{Name: "auth-01", Description: "Authentication service", IPAddress: "192.168.3.30", Location: Location{City: "Zurich", Country: "Switzerland"}},
	{Name: "fw-01", Description: "Perimeter firewall", IPAddress: "10.0.0.1", Location: Location{City: "Berlin", Country: "Germany"}},
	{Name: "mail-01", Description: "Mail relay", IPAddress: "10.0.1.5", Location: Location{City: "Paris", Country: "France"}},
}

// Default returns the vocabularies used by the benchmark unless a test or
// caller injects its own.
func Default() Set {
	s, err := New(defaultSeverities, defaultEventTypes, defaultSources)
	if err != nil {
		panic(err)
	}
	return s
}
