package bundler

// Loader preambles for assembled bundles. Two variants: the modern one
// relies on async/await and object spread; the legacy one sticks to ES5
// syntax for downlevel targets. Both define System.register collection and
// the __instantiate entry the assembler's tail calls.

const loaderModern = `// Loader preamble: registers modules and instantiates the root by id.
let System, __instantiate;
(() => {
  const r = new Map();

  System = {
    register(id, deps, f) {
      r.set(id, { deps, f, exp: {} });
    },
  };

  async function dI(mid, src) {
    let id = mid.replace(/\.\w+$/i, "");
    if (id.includes("./")) {
      const [o, ...ia] = id.split("/").reverse(),
        [, ...sa] = src.split("/").reverse(),
        oa = [o];
      let s = 0,
        i;
      while ((i = ia.shift())) {
        if (i === "..") s++;
        else if (i === ".") break;
        else oa.push(i);
      }
      if (s < sa.length) oa.push(...sa.slice(s));
      id = oa.reverse().join("/");
    }
    return r.has(id) ? gExpA(id) : import(mid);
  }

  function gC(id, main) {
    return {
      id,
      import: (m) => dI(m, id),
      meta: { url: id, main },
    };
  }

  function gE(exp) {
    return (id, v) => {
      const values = typeof id === "string" ? { [id]: v } : id;
      for (const [id, value] of Object.entries(values)) {
        Object.defineProperty(exp, id, {
          value,
          writable: true,
          enumerable: true,
        });
      }
      return v;
    };
  }

  function rF(main) {
    for (const [id, m] of r.entries()) {
      const { f, exp } = m;
      const { execute: e, setters: s } = f(gE(exp), gC(id, id === main));
      delete m.f;
      m.e = e;
      m.s = s;
    }
  }

  async function gExpA(id) {
    if (!r.has(id)) return;
    const m = r.get(id);
    if (m.s) {
      const { deps, e, s } = m;
      delete m.s;
      delete m.e;
      for (let i = 0; i < s.length; i++) s[i](await gExpA(deps[i]));
      const y = await e();
      if (y) await y;
    }
    return m.exp;
  }

  function gExp(id) {
    if (!r.has(id)) return;
    const m = r.get(id);
    if (m.s) {
      const { deps, e, s } = m;
      delete m.s;
      delete m.e;
      for (let i = 0; i < s.length; i++) s[i](gExp(deps[i]));
      e();
    }
    return m.exp;
  }

  __instantiate = (m, a) => {
    System = __instantiate = undefined;
    rF(m);
    return a ? gExpA(m) : gExp(m);
  };
})();`

const loaderLegacy = `// Loader preamble (ES5 variant): registers modules and instantiates the
// root by id. No async/await syntax; async instantiation returns promises.
var System, __instantiate;
(function () {
  "use strict";
  var r = new Map();

  System = {
    register: function (id, deps, f) {
      r.set(id, { deps: deps, f: f, exp: {} });
    },
  };

  function gC(id, main) {
    return {
      id: id,
      import: function () {
        return Promise.reject(new Error("dynamic import not supported: " + id));
      },
      meta: { url: id, main: main },
    };
  }

  function gE(exp) {
    return function (id, v) {
      var values = typeof id === "string" ? {} : id;
      if (typeof id === "string") values[id] = v;
      for (var k in values) {
        Object.defineProperty(exp, k, {
          value: values[k],
          writable: true,
          enumerable: true,
        });
      }
      return v;
    };
  }

  function rF(main) {
    r.forEach(function (m, id) {
      var o = m.f(gE(m.exp), gC(id, id === main));
      delete m.f;
      m.e = o.execute;
      m.s = o.setters;
    });
  }

  function gExpA(id) {
    if (!r.has(id)) return Promise.resolve();
    var m = r.get(id);
    if (m.s) {
      var deps = m.deps, e = m.e, s = m.s;
      delete m.s;
      delete m.e;
      var p = Promise.resolve();
      deps.forEach(function (d, i) {
        p = p.then(function () {
          return gExpA(d).then(function (dep) {
            s[i](dep);
          });
        });
      });
      return p
        .then(function () {
          return e();
        })
        .then(function () {
          return m.exp;
        });
    }
    return Promise.resolve(m.exp);
  }

  function gExp(id) {
    if (!r.has(id)) return;
    var m = r.get(id);
    if (m.s) {
      var deps = m.deps, e = m.e, s = m.s;
      delete m.s;
      delete m.e;
      for (var i = 0; i < s.length; i++) s[i](gExp(deps[i]));
      e();
    }
    return m.exp;
  }

  __instantiate = function (m, a) {
    System = __instantiate = undefined;
    rF(m);
    return a ? gExpA(m) : gExp(m);
  };
})();`
