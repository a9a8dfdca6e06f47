package tsc

// jsHarness is the code run inside the held node process. It speaks the
// JSON-lines protocol over fds 3 and 4 with blocking reads, so host
// callbacks issued mid-operation are plain synchronous calls from the
// compiler's point of view. The wait loop inside callHost services nested
// operations the peer issues while handling a callback, mirroring the
// reentrancy on the Go side.
const jsHarness = `
"use strict";
const fs = require("node:fs");
const ts = require("typescript");

const READ_FD = 3;
const WRITE_FD = 4;
const NEWLINE = 10;

let pending = Buffer.alloc(0);
function readLineSync() {
  for (;;) {
    const nl = pending.indexOf(NEWLINE);
    if (nl !== -1) {
      const line = pending.subarray(0, nl).toString("utf-8");
      pending = pending.subarray(nl + 1);
      if (!line) continue;
      return JSON.parse(line);
    }
    const chunk = Buffer.alloc(1 << 16);
    let n;
    try {
      n = fs.readSync(READ_FD, chunk, 0, chunk.length, null);
    } catch (e) {
      if (e.code === "EAGAIN") continue;
      throw e;
    }
    if (n <= 0) process.exit(0);
    pending = Buffer.concat([pending, chunk.subarray(0, n)]);
  }
}

function writeLineSync(payload) {
  let buf = Buffer.from(JSON.stringify(payload) + "\n", "utf-8");
  while (buf.length) {
    const n = fs.writeSync(WRITE_FD, buf);
    buf = buf.subarray(n);
  }
}

let callSeq = 1e9;
function callHost(call, args) {
  callSeq++;
  writeLineSync({ id: callSeq, call, args });
  for (;;) {
    const msg = readLineSync();
    if (msg.reply) {
      if (msg.id !== callSeq) throw new Error("callback reply out of order");
      if (msg.errtext) throw new Error("host: " + msg.errtext);
      return msg.res;
    }
    handleOp(msg);
  }
}

// Engine-side registries. Handles are opaque strings round-tripped by the
// peer.
const sourceFiles = new Map();
const programs = new Map();
let handleSeq = 0;

const scriptKinds = {
  JavaScript: ts.ScriptKind.JS,
  JSX: ts.ScriptKind.JSX,
  TypeScript: ts.ScriptKind.TS,
  TSX: ts.ScriptKind.TSX,
  Dts: ts.ScriptKind.TS,
  JSON: ts.ScriptKind.JSON,
};

function convertOptions(raw) {
  const { options, errors } = ts.convertCompilerOptionsFromJson(raw, "");
  if (errors.length) {
    throw new Error(ts.flattenDiagnosticMessageText(errors[0].messageText, " "));
  }
  return options;
}

// Wire category codes: 0 error, 1 warning, 2 suggestion, 3 message. The
// compiler's own enum orders these differently.
const wireCategory = {
  [ts.DiagnosticCategory.Error]: 0,
  [ts.DiagnosticCategory.Warning]: 1,
  [ts.DiagnosticCategory.Suggestion]: 2,
  [ts.DiagnosticCategory.Message]: 3,
};

function toDiag(d) {
  const out = {
    code: d.code,
    category: wireCategory[d.category] ?? 3,
    message: ts.flattenDiagnosticMessageText(d.messageText, "\n"),
  };
  if (d.file) {
    out.fileName = d.file.fileName;
    if (d.start !== undefined) {
      const pos = d.file.getLineAndCharacterOfPosition(d.start);
      out.line = pos.line + 1;
      out.column = pos.character + 1;
    }
  }
  return out;
}

function makeHost(options) {
  return {
    getSourceFile(fileName) {
      const res = callHost("getSourceFile", { url: fileName });
      if (!res.found) return undefined;
      return sourceFiles.get(res.handle);
    },
    getDefaultLibFileName() {
      return "asset:///" + callHost("defaultLib", {}).name;
    },
    writeFile(fileName, data, _bom, _onError, sources) {
      callHost("writeFile", {
        filename: fileName,
        data,
        sourceUrls: (sources || []).map((s) => s.fileName),
      });
    },
    readFile(path) {
      if (path === options.tsBuildInfoFile) {
        const res = callHost("buildInfo", {});
        return res.found ? res.data : undefined;
      }
      return callHost("readFile", { path }).text;
    },
    fileExists(path) {
      if (path === options.tsBuildInfoFile) {
        return callHost("buildInfo", {}).found;
      }
      return false;
    },
    resolveModuleNames(names, containing) {
      const res = callHost("resolveSpecifiers", {
        specifiers: names,
        containing,
      });
      return res.map((m) =>
        m.found ? { resolvedFileName: m.url, extension: extFor(m.mediaType) } : undefined
      );
    },
    getCurrentDirectory: () => "",
    getCanonicalFileName: (f) => f,
    getNewLine: () => "\n",
    useCaseSensitiveFileNames: () => true,
  };
}

function extFor(mediaType) {
  switch (mediaType) {
    case "JSX": return ".jsx";
    case "TypeScript": return ".ts";
    case "TSX": return ".tsx";
    case "Dts": return ".d.ts";
    case "JSON": return ".json";
    default: return ".js";
  }
}

const ops = {
  parse({ url, source, mediaType, version }) {
    const sf = ts.createSourceFile(url, source, ts.ScriptTarget.ESNext, true, scriptKinds[mediaType] ?? ts.ScriptKind.TS);
    sf.version = version;
    handleSeq++;
    const handle = "sf" + handleSeq;
    sourceFiles.set(handle, sf);
    return { handle };
  },

  createProgram({ rootNames, options: raw }) {
    const options = convertOptions(raw);
    const host = makeHost(options);
    const program = options.incremental
      ? ts.createIncrementalProgram({ rootNames, options, host })
      : ts.createProgram(rootNames, options, host);
    const inner = program.getProgram ? program.getProgram() : program;
    const diagnostics = [
      ...inner.getConfigFileParsingDiagnostics(),
      ...inner.getSyntacticDiagnostics(),
      ...inner.getOptionsDiagnostics(),
      ...inner.getGlobalDiagnostics(),
      ...inner.getSemanticDiagnostics(),
    ].map(toDiag);
    handleSeq++;
    const handle = "prog" + handleSeq;
    programs.set(handle, program);
    return { program: handle, diagnostics };
  },

  emit({ program: handle }) {
    const program = programs.get(handle);
    if (!program) throw new Error("unknown program: " + handle);
    const res = program.emit();
    return {
      skipped: res.emitSkipped,
      diagnostics: (res.diagnostics || []).map(toDiag),
    };
  },

  moduleExports({ program: handle, url }) {
    const program = programs.get(handle);
    if (!program) throw new Error("unknown program: " + handle);
    const inner = program.getProgram ? program.getProgram() : program;
    const sf = inner.getSourceFile(url);
    if (!sf) throw new Error("no source file for: " + url);
    const checker = inner.getTypeChecker();
    const symbol = checker.getSymbolAtLocation(sf);
    if (!symbol) return [];
    return checker.getExportsOfModule(symbol).map((s) => {
      let flags = s.getFlags();
      if (flags & ts.SymbolFlags.Alias) {
        flags |= checker.getAliasedSymbol(s).getFlags();
      }
      return { name: s.getName(), flags: flags >>> 0 };
    });
  },

  transpile({ filename, source, options: raw }) {
    const out = ts.transpileModule(source, {
      fileName: filename,
      compilerOptions: convertOptions(raw),
      reportDiagnostics: true,
    });
    return {
      source: out.outputText,
      map: out.sourceMapText || "",
      diagnostics: (out.diagnostics || []).map(toDiag),
    };
  },
};

function handleOp(msg) {
  if (msg.op === "shutdown") process.exit(0);
  try {
    const fn = ops[msg.op];
    if (!fn) throw new Error("unknown op: " + msg.op);
    writeLineSync({ id: msg.id, status: "ok", res: fn(msg.args ?? {}) });
  } catch (e) {
    writeLineSync({ id: msg.id, status: "err", errtext: String(e && e.stack || e) });
  }
}

for (;;) {
  handleOp(readLineSync());
}
`
