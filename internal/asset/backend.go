package asset

import (
	"fmt"
	"strings"
)

// Backend selects where Retrieve loads data from.
type Backend int

const (
	// RemoteAPI loads history for the asset's ticker from a market-data provider.
	RemoteAPI Backend = iota + 1
	// LocalFile parses a delimited-text or spreadsheet file.
	LocalFile
)

func (b Backend) String() string {
	switch b {
	case RemoteAPI:
		return "API"
	case LocalFile:
		return "File"
	default:
		return fmt.Sprintf("Backend(%d)", int(b))
	}
}

// ParseBackend maps the textual backend names used in config and on the
// command line.
func ParseBackend(s string) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "api", "remote":
		return RemoteAPI, nil
	case "file", "local":
		return LocalFile, nil
	}
	return 0, fmt.Errorf("incorrect method %q: select API or File", s)
}
