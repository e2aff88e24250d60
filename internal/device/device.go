// Package device snapshots the host a collection pass runs on.
package device

import (
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/sells-group/ambientctx/internal/model"
)

// Snapshot describes the current host. agent identifies the calling program.
func Snapshot(agent string) model.Device {
	host, err := os.Hostname()
	if err != nil {
		host = model.UnknownValue
	}
	return model.Device{
		Agent:     agent,
		Platform:  runtime.GOOS,
		Arch:      runtime.GOARCH,
		Language:  language(os.Getenv),
		Hostname:  host,
		NumCPU:    runtime.NumCPU(),
		Timezone:  time.Local.String(),
		GoVersion: runtime.Version(),
	}
}

// language follows the POSIX locale precedence and strips the encoding suffix.
func language(getenv func(string) string) string {
	for _, k := range []string{"LC_ALL", "LC_MESSAGES", "LANG"} {
		v := getenv(k)
		if v == "" || v == "C" || v == "POSIX" {
			continue
		}
		if i := strings.IndexAny(v, ".@"); i >= 0 {
			v = v[:i]
		}
		return strings.ReplaceAll(v, "_", "-")
	}
	return model.UnknownValue
}
