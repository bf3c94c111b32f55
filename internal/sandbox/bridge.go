package sandbox

const baseStyles = `* { box-sizing: border-box; }
body {
  margin: 0;
  padding: 20px;
  font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;
  background: #ffffff;
  min-height: 100vh;
}`

// bridgeScript runs before app code. It keeps a private handle on the host
// window, then hides parent and top from the app.
const bridgeScript = `(function () {
  var cfg = __BRIDGE_CONFIG__;
  var host = window.parent;
  var post = function (type, fields) {
    var msg = { v: cfg.v, channel: cfg.channel, type: type, ts: Date.now() };
    for (var k in fields) { if (Object.prototype.hasOwnProperty.call(fields, k)) msg[k] = fields[k]; }
    try { host.postMessage(msg, cfg.origin); } catch (e) {}
  };
  var hide = function (name) {
    try { Object.defineProperty(window, name, { value: null, configurable: false }); }
    catch (e) { try { window[name] = null; } catch (e2) {} }
  };
  hide('parent');
  hide('top');
  hide('opener');

  var stringify = function (arg) {
    if (typeof arg === 'string') return arg;
    try { return typeof arg === 'object' ? JSON.stringify(arg) : String(arg); }
    catch (e) { return String(arg); }
  };
  ['log', 'info', 'warn', 'error', 'debug'].forEach(function (level) {
    var original = console[level];
    console[level] = function () {
      var args = Array.prototype.slice.call(arguments, 0, 32).map(stringify);
      post('console', { level: level, args: args });
      if (original) { try { original.apply(console, arguments); } catch (e) {} }
    };
  });

  var idle = null;
  var active = false;
  var touch = function () {
    if (!active) { active = true; post('interaction', { action: 'start' }); }
    clearTimeout(idle);
    idle = setTimeout(function () { active = false; post('interaction', { action: 'end' }); }, cfg.idleMs);
  };
  ['click', 'touchstart', 'keydown', 'input'].forEach(function (type) {
    document.addEventListener(type, touch, { passive: true, capture: true });
  });

  window.addEventListener('error', function (event) {
    post('error', { message: String(event.message || 'Script error'), filename: event.filename || '', lineno: event.lineno || 0 });
  });
  window.addEventListener('unhandledrejection', function (event) {
    var reason = event.reason;
    post('error', { message: String((reason && reason.message) || reason || 'Unhandled rejection') });
  });
  window.addEventListener('load', function () {
    post('ready', { capabilities: cfg.capabilities });
  });

  window.__appfeedReport = function (error) {
    post('error', { message: String((error && error.message) || error), lineno: (error && error.lineNumber) || 0 });
  };
})();`
