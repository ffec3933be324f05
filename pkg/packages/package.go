package packages

// Package is one installed system package as reported by the inventory command.
type Package struct {
	Name    string `json:"name" yaml:"name"`
	Version string `json:"version" yaml:"version"`
}

func (p Package) String() string {
	return p.Name + " " + p.Version
}

// Status is the outcome of an extraction.
type Status int

const (
	Success Status = iota
	ImageNotFound
	ToolUnsupported
	CommandTimeout
	CommandFailed
)

var statusNames = map[Status]string{
	Success:         "Success",
	ImageNotFound:   "ImageNotFound",
	ToolUnsupported: "ToolUnsupported",
	CommandTimeout:  "CommandTimeout",
	CommandFailed:   "CommandFailed",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return "Unknown"
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
