package ctl

import "runtime"

// Build-time variables set via -ldflags.
var (
	Version   = "dev"
	GoVersion = runtime.Version()
)

// VersionInfo prints the CLI version. The backend does not report one.
func VersionInfo(env *Env) error {
	if env.JSON {
		return env.printJSON(map[string]any{
			"version":    Version,
			"go_version": GoVersion,
		})
	}

	env.println()
	env.println(header("  GUARDCTL VERSION"))
	env.println(rule(38))
	env.printf("  %-12s %s\n", colorize(dim, "CLI:"), Version+" ("+GoVersion+")")
	env.printf("  %-12s %s\n", colorize(dim, "Backend:"), env.Cfg.Backend.URL)
	env.println()
	return nil
}
