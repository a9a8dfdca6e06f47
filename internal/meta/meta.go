// Package meta detects runtime metadata of the embedded engine environment
// (node binary, compiler package) for startup logging and version checks.
//
// Goals:
//   - Best-effort probing: tolerate a missing binary or package
//   - No side effects beyond running the probes
package meta

import (
	"context"
	"os/exec"
	"strings"
	"time"
)

// Info summarizes the engine environment.
type Info struct {
	Node       string // e.g. "v22.4.0"; "" when the binary is unavailable
	TypeScript string // e.g. "5.5.3"; "" when the package cannot be resolved
}

const probeTimeout = 5 * time.Second

// Detect probes the node binary and the compiler package it can resolve.
// Probe failures leave the corresponding field empty.
func Detect(ctx context.Context, nodeBinary string) Info {
	if nodeBinary == "" {
		nodeBinary = "node"
	}
	var inf Info
	inf.Node = probe(ctx, nodeBinary, "--version")
	if inf.Node != "" {
		inf.TypeScript = probe(ctx, nodeBinary, "-p", "require('typescript').version")
	}
	return inf
}

// Available reports whether the environment can run compilations.
func (i Info) Available() bool {
	return i.Node != "" && i.TypeScript != ""
}

func probe(ctx context.Context, bin string, args ...string) string {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	out, err := exec.CommandContext(ctx, bin, args...).Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}
