// Package main provides the compile-host worker: it reads one compilation
// request as JSON, runs it against the embedded compiler engine held in a
// node process, and writes the response as JSON.
//
// Usage:
//   compile-host [flags] < request.json > response.json
//   compile-host -in request.json -out response.json [flags]
//
// Key design goals:
//   - One request per invocation; all per-request state dies with the run
//   - Incremental build state survives runs via an on-disk sidecar keyed by
//     the request's root set
//   - Diagnostics travel in the response; process failure means a broken
//     request or environment, never a user-facing compile error
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"compile-host/internal/buildcache"
	"compile-host/internal/dispatch"
	"compile-host/internal/engine/tsc"
	"compile-host/internal/meta"
	"compile-host/internal/source"
	"compile-host/internal/wire"
)

const version = "0.3.0"

func newLogger(verbose bool) *zap.Logger {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
		cfg.Development = true
	}
	log, err := cfg.Build()
	if err != nil {
		fmt.Fprintln(os.Stderr, "ERROR: build logger:", err)
		os.Exit(1)
	}
	return log
}

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage:\n")
		fmt.Fprintf(os.Stderr, "  %s [flags] < request.json > response.json\n", filepath.Base(os.Args[0]))
		fmt.Fprintln(os.Stderr, "\nFlags:")
		flag.PrintDefaults()
	}

	libDirFlag := flag.String("lib-dir", "", "directory holding built-in library declaration files")
	cacheDirFlag := flag.String("cache-dir", "tmp/.hostcache", "base directory for incremental build state")
	newFlag := flag.Bool("new", false, "reset cached build state for this request's roots before compiling")
	nodeFlag := flag.String("node", "node", "node binary running the engine")
	inFlag := flag.String("in", "", "request file (default: stdin)")
	outFlag := flag.String("out", "", "response file (default: stdout)")
	verboseFlag := flag.Bool("v", false, "debug logging")
	versionFlag := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *versionFlag {
		fmt.Println(version)
		return
	}

	log := newLogger(*verboseFlag)
	defer log.Sync()

	if err := run(log, *libDirFlag, *cacheDirFlag, *nodeFlag, *inFlag, *outFlag, *newFlag); err != nil {
		log.Error("request failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(log *zap.Logger, libDir, cacheDir, nodeBin, inPath, outPath string, resetCache bool) error {
	ctx := context.Background()

	raw, err := readRequest(inPath)
	if err != nil {
		return err
	}
	log.Debug("request read", zap.String("size", humanize.Bytes(uint64(len(raw)))))

	req, err := wire.Decode(raw)
	if err != nil {
		return err
	}

	env := meta.Detect(ctx, nodeBin)
	if !env.Available() {
		return fmt.Errorf("engine environment unavailable (node=%q typescript=%q)", env.Node, env.TypeScript)
	}
	log.Info("engine environment",
		zap.String("node", env.Node),
		zap.String("typescript", env.TypeScript))

	runner, err := tsc.Start(ctx, tsc.Params{NodeBinary: nodeBin, Log: log})
	if err != nil {
		return err
	}
	defer runner.Close()

	var assets source.AssetFetcher
	if libDir != "" {
		assets = source.NewDirFetcher(libDir)
	}

	// Incremental sidecar: only the pre-resolved compile strategy persists
	// build state across runs.
	var slot string
	if c, ok := req.(*wire.CompileRequest); ok {
		slot = buildcache.Dir(cacheDir, c.RootNames)
		if resetCache {
			if err := buildcache.Clear(slot); err != nil {
				return err
			}
		}
		if len(c.BuildInfo) == 0 {
			prev, err := buildcache.Load(slot)
			if err != nil {
				log.Warn("build state unreadable, starting clean", zap.Error(err))
			} else if prev != nil {
				c.BuildInfo = prev
				log.Debug("build state loaded",
					zap.String("size", humanize.Bytes(uint64(len(prev)))))
			}
		}
	}

	h := dispatch.NewHandler(dispatch.Deps{Engine: tsc.New(runner), Assets: assets, Log: log})
	resp, err := h.Handle(req)
	if err != nil {
		return err
	}

	if slot != "" && len(resp.BuildInfo) > 0 {
		if err := buildcache.Save(slot, resp.BuildInfo); err != nil {
			log.Warn("build state not saved", zap.Error(err))
		}
	}

	return writeResponse(outPath, resp)
}

func readRequest(path string) ([]byte, error) {
	if path == "" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

func writeResponse(path string, resp *wire.Response) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	data = append(data, '\n')
	if path == "" {
		_, err = os.Stdout.Write(data)
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
