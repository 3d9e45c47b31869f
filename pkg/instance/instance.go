package instance

import (
	"os"
	"strings"
)

const EnvInstanceID = "UNITRADE_INSTANCE_ID"

// GetID identifies the running process in logs. It prefers the explicit
// instance id, then the container hostname.
func GetID() string {
	for _, key := range []string{EnvInstanceID, "HOSTNAME"} {
		if id := strings.TrimSpace(os.Getenv(key)); id != "" {
			return id
		}
	}
	return "local"
}
