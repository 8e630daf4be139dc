package supervisor

import "fmt"

// Version is set at build time via -ldflags.
var Version = "dev"

const defaultClientName = "supervisor"

// versionFooter returns the informational footer line appended to outgoing
// messages, e.g. "my-app version: 1.2.0".
func versionFooter(client string) string {
	if client == "" {
		client = defaultClientName
	}
	return fmt.Sprintf("%s version: %s", client, Version)
}
