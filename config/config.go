// Package config implements the environment and config surface (§6): a
// key-value retrieval helper checking CLI-style flags, then prefixed
// environment variables, then a caller default — modeled on the teacher's
// flat option-struct style (optim.SGDConfig, parallel.Config) rather than
// a config library, since none of the pack's repos import one for simple
// env/flag lookup.
package config

import (
	"os"
	"strings"
)

// Prefix is the name-spacing prefix every variant of a config key carries,
// per §6 ("with prefix ocannl_ or OCANNL_ or ocannl-/OCANNL-").
const Prefix = "ocannl"

// variants returns every spelling of name that Lookup/LookupCLI accept,
// matching §6's listed forms: bare name, upper-case, and snake/kebab
// prefixed forms in both cases.
func variants(name string) []string {
	upper := strings.ToUpper(name)
	return []string{
		name,
		upper,
		Prefix + "_" + name,
		strings.ToUpper(Prefix) + "_" + upper,
		Prefix + "-" + name,
		strings.ToUpper(Prefix) + "-" + upper,
	}
}

// Lookup checks the environment for name under every §6 variant spelling
// and returns the first hit, else false.
func Lookup(name string) (string, bool) {
	for _, v := range variants(name) {
		if val, ok := os.LookupEnv(v); ok {
			return val, true
		}
	}
	return "", false
}

// LookupCLI checks args for a flag matching name, accepting the leading
// `-`/`--` and trailing `_`/`-`/`=` decorations §6 allows on the command
// line, in addition to the plain variants Lookup checks. A bare flag (no
// `=value` and no following argument) is treated as present with value
// "true", matching common boolean-flag conventions; `--flag value` and
// `--flag=value` are both accepted.
func LookupCLI(args []string, name string) (string, bool) {
	var forms []string
	for _, v := range variants(name) {
		for _, lead := range []string{"-", "--"} {
			for _, trail := range []string{"", "_", "-"} {
				forms = append(forms, lead+v+trail)
			}
		}
	}

	for i, arg := range args {
		for _, f := range forms {
			if arg == f {
				if i+1 < len(args) {
					return args[i+1], true
				}
				return "true", true
			}
			if strings.HasPrefix(arg, f+"=") {
				return arg[len(f)+1:], true
			}
		}
	}
	return "", false
}

// String resolves name per §6's precedence: first a command-line match,
// else an environment match, else def.
func String(args []string, name, def string) string {
	if v, ok := LookupCLI(args, name); ok {
		return v
	}
	if v, ok := Lookup(name); ok {
		return v
	}
	return def
}

// Bool resolves name the same way as String, treating "1"/"true"/"yes"
// (case-insensitive) as true and everything else as false.
func Bool(args []string, name string, def bool) bool {
	raw, ok := "", false
	if v, found := LookupCLI(args, name); found {
		raw, ok = v, true
	} else if v, found := Lookup(name); found {
		raw, ok = v, true
	}
	if !ok {
		return def
	}
	switch strings.ToLower(raw) {
	case "1", "true", "yes":
		return true
	default:
		return false
	}
}

// DebugFiles reports whether output_debug_files_in_run_directory is set
// (§6 "Debug artifacts (opt-in)").
func DebugFiles(args []string) bool {
	return Bool(args, "output_debug_files_in_run_directory", false)
}

// BackendName resolves the backend selection config key, defaulting to
// "cpu-jit" (§6 "Backend selection").
func BackendName(args []string) string {
	return String(args, "backend", "cpu-jit")
}
