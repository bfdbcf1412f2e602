package handlers

import (
	"runtime/debug"
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/persona/backend/pkg/utils"
)

// Build metadata, injected at link time:
//
//	go build -ldflags "-X github.com/persona/backend/internal/handlers.Version=1.2.3 \
//	  -X github.com/persona/backend/internal/handlers.Commit=$(git rev-parse --short HEAD) \
//	  -X github.com/persona/backend/internal/handlers.BuildTime=$(date -u +%FT%TZ)"
//
// Commit and BuildTime fall back to the VCS stamp the Go toolchain embeds.
var (
	Version   = "dev"
	Commit    = ""
	BuildTime = ""
)

const (
	serviceName = "persona"
	apiVersion  = "v1"
)

type buildInfo struct {
	Service    string `json:"service"`
	Version    string `json:"version"`
	APIVersion string `json:"apiVersion"`
	Commit     string `json:"commit,omitempty"`
	BuildTime  string `json:"buildTime,omitempty"`
	Modified   bool   `json:"modified,omitempty"`
	GoVersion  string `json:"goVersion,omitempty"`
}

var (
	buildOnce   sync.Once
	cachedBuild buildInfo
)

func currentBuild() buildInfo {
	buildOnce.Do(func() {
		cachedBuild = readBuild(Version, Commit, BuildTime, debug.ReadBuildInfo)
	})
	return cachedBuild
}

func readBuild(version, commit, builtAt string, read func() (*debug.BuildInfo, bool)) buildInfo {
	out := buildInfo{
		Service:    serviceName,
		Version:    version,
		APIVersion: apiVersion,
		Commit:     commit,
		BuildTime:  builtAt,
	}
	info, ok := read()
	if !ok || info == nil {
		return out
	}
	out.GoVersion = info.GoVersion
	if out.Version == "dev" && info.Main.Version != "" && info.Main.Version != "(devel)" {
		out.Version = info.Main.Version
	}
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			if out.Commit == "" {
				out.Commit = setting.Value
				if len(out.Commit) > 12 {
					out.Commit = out.Commit[:12]
				}
			}
		case "vcs.time":
			if out.BuildTime == "" {
				out.BuildTime = setting.Value
			}
		case "vcs.modified":
			out.Modified = setting.Value == "true"
		}
	}
	return out
}

// GetVersion reports the running build so the CLI and dashboards can tell
// which persona release answered.
func GetVersion(c *fiber.Ctx) error {
	return utils.Success(c, fiber.StatusOK, currentBuild())
}
