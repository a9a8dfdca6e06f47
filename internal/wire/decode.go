package wire

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

type envelope struct {
	Kind *int `json:"kind"`
}

// Decode parses a raw request payload into one of the closed set of typed
// requests, validating that every field the kind requires is present.
// Failures here mean the caller violated the wire contract; the worker
// aborts rather than answering with diagnostics.
func Decode(data []byte) (Request, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("wire: decode envelope: %w", err)
	}
	if env.Kind == nil {
		return nil, errors.New("wire: request missing kind")
	}

	kind := Kind(*env.Kind)
	var req Request
	switch kind {
	case KindCompile:
		req = &CompileRequest{}
	case KindTranspile:
		req = &TranspileRequest{}
	case KindBundle:
		req = &BundleRequest{}
	case KindRuntimeCompile:
		req = &RuntimeCompileRequest{}
	case KindRuntimeBundle:
		req = &RuntimeBundleRequest{}
	case KindRuntimeTranspile:
		req = &RuntimeTranspileRequest{}
	default:
		return nil, fmt.Errorf("wire: unknown request kind %d", *env.Kind)
	}

	if err := json.Unmarshal(data, req); err != nil {
		return nil, fmt.Errorf("wire: decode %s request: %w", kind, err)
	}
	if err := validate(req); err != nil {
		return nil, fmt.Errorf("wire: invalid %s request:\n%w", kind, err)
	}
	return req, nil
}

func validate(req Request) error {
	var errs errlist
	switch r := req.(type) {
	case *CompileRequest:
		if len(r.RootNames) == 0 {
			errs.add("rootNames must be non-empty")
		}
		if len(r.SourceFileMap) == 0 {
			errs.add("sourceFileMap must be non-empty")
		}
		validateFileMap(&errs, r.SourceFileMap)
	case *TranspileRequest:
		if len(r.Sources) == 0 {
			errs.add("sources must be non-empty")
		}
	case *BundleRequest:
		if len(r.RootNames) != 1 {
			errs.add("bundle requires exactly one root, got %d", len(r.RootNames))
		}
		if len(r.SourceFileMap) == 0 {
			errs.add("sourceFileMap must be non-empty")
		}
		validateFileMap(&errs, r.SourceFileMap)
	case *RuntimeCompileRequest:
		validateRuntimeGraph(&errs, r.RootName, r.Sources, r.SourceFileMap)
	case *RuntimeBundleRequest:
		validateRuntimeGraph(&errs, r.RootName, r.Sources, r.SourceFileMap)
	case *RuntimeTranspileRequest:
		if len(r.Sources) == 0 {
			errs.add("sources must be non-empty")
		}
	}
	return errs.err()
}

func validateRuntimeGraph(errs *errlist, rootName string, sources map[string]string, fileMap map[string]FileMapEntry) {
	if strings.TrimSpace(rootName) == "" {
		errs.add("rootName must be non-empty")
	}
	if len(sources) == 0 && len(fileMap) == 0 {
		errs.add("one of sources or sourceFileMap must be non-empty")
	}
	validateFileMap(errs, fileMap)
}

func validateFileMap(errs *errlist, fileMap map[string]FileMapEntry) {
	for key, entry := range fileMap {
		if entry.URL == "" {
			errs.add("sourceFileMap[%s]: url must be non-empty", key)
		} else if entry.URL != key {
			errs.add("sourceFileMap[%s]: key and url disagree (%s)", key, entry.URL)
		}
		if entry.VersionHash == "" {
			errs.add("sourceFileMap[%s]: versionHash must be non-empty", key)
		}
		for i, e := range entry.Imports {
			if e.Specifier == "" {
				errs.add("sourceFileMap[%s].imports[%d]: specifier must be non-empty", key, i)
			}
		}
	}
}

// errlist aggregates multiple validation issues into a single error.
type errlist struct {
	msgs []string
}

func (e *errlist) add(format string, args ...any) {
	if e == nil {
		return
	}
	e.msgs = append(e.msgs, fmt.Sprintf(format, args...))
}

func (e *errlist) err() error {
	if e == nil || len(e.msgs) == 0 {
		return nil
	}
	return errors.New(strings.Join(e.msgs, "\n"))
}
