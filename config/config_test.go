package config

import "testing"

func TestLookupVariants(t *testing.T) {
	t.Setenv("OCANNL_BACKEND", "cuda")
	v, ok := Lookup("backend")
	if !ok || v != "cuda" {
		t.Errorf("Lookup(backend) = %q, %v; want cuda, true", v, ok)
	}
}

func TestLookupPlainNameWins(t *testing.T) {
	t.Setenv("backend", "cpu-jit")
	v, ok := Lookup("backend")
	if !ok || v != "cpu-jit" {
		t.Errorf("Lookup(backend) = %q, %v; want cpu-jit, true", v, ok)
	}
}

func TestLookupCLIEquals(t *testing.T) {
	args := []string{"--ocannl-backend=cuda"}
	v, ok := LookupCLI(args, "backend")
	if !ok || v != "cuda" {
		t.Errorf("LookupCLI = %q, %v; want cuda, true", v, ok)
	}
}

func TestLookupCLISeparateArg(t *testing.T) {
	args := []string{"-backend", "cuda"}
	v, ok := LookupCLI(args, "backend")
	if !ok || v != "cuda" {
		t.Errorf("LookupCLI = %q, %v; want cuda, true", v, ok)
	}
}

func TestLookupCLITrailingEquals(t *testing.T) {
	args := []string{"--OCANNL_BACKEND_=cuda"}
	v, ok := LookupCLI(args, "backend")
	if !ok || v != "cuda" {
		t.Errorf("LookupCLI = %q, %v; want cuda, true", v, ok)
	}
}

func TestStringPrecedenceCLIOverEnv(t *testing.T) {
	t.Setenv("OCANNL_BACKEND", "cuda")
	v := String([]string{"--backend=cpu-jit"}, "backend", "default")
	if v != "cpu-jit" {
		t.Errorf("String = %q, want cpu-jit (CLI over env)", v)
	}
}

func TestStringFallsBackToDefault(t *testing.T) {
	v := String(nil, "nonexistent_key", "fallback")
	if v != "fallback" {
		t.Errorf("String = %q, want fallback", v)
	}
}

func TestBoolTruthyValues(t *testing.T) {
	for _, val := range []string{"1", "true", "TRUE", "yes"} {
		t.Setenv("OCANNL_FLAG", val)
		if !Bool(nil, "flag", false) {
			t.Errorf("Bool(%q) = false, want true", val)
		}
	}
}

func TestDebugFilesDefaultsFalse(t *testing.T) {
	if DebugFiles(nil) {
		t.Error("DebugFiles(nil) = true, want false by default")
	}
}

func TestBackendNameDefaultsToCPUJit(t *testing.T) {
	if got := BackendName(nil); got != "cpu-jit" {
		t.Errorf("BackendName(nil) = %q, want cpu-jit", got)
	}
}
