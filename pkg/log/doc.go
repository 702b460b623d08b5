// Package log is a small wrapper around the standard library logger used by
// every suvidha component.
//
// Each component asks for a named logger with ForService and logs through the
// level helpers:
//
//	l := log.ForService("remote")
//	l.Infof("searching %q", q)
//	l.Warnf("search endpoint returned %d", status)
//	l.Debugf("raw body: %s", body) // only when debug is enabled
//
// Every line carries a `[name>]` marker so output from the normalizer, the
// fallback index and the orchestrator can be told apart with grep.
//
// Debug output is off by default. It can be enabled for everything
// (SetGlobalDebug, wired to the --debug flag) or per service
// (EnableDebugFor("normalize")). Sub-loggers created with Named inherit the
// parent's debug switch, so EnableDebugFor("suggest") also covers
// "suggest:ws-3f2a".
//
// SetOutput redirects every existing and future logger, which is how tests
// capture log lines in a bytes.Buffer.
package log
