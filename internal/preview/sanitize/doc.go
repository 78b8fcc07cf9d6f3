// Package sanitize strips known-dangerous constructs from preview markup and styles.
//
// The transforms are a regex denylist: deterministic, total and safe to call on
// any input. Each transform runs to a fixpoint so that payloads which only become
// dangerous after an inner match is removed (for example "<scr<script></script>ipt>")
// are caught, and applying a sanitizer twice yields the same result as once.
//
// A denylist is not a security boundary. The iframe sandbox attributes returned by
// the renderer carry that role; PolicyAllowlist adds a bluemonday allow-list pass
// in front of the denylist for callers that want stricter markup.
//
// Usage:
//
//	clean := sanitize.HTML(`<img src=x onerror="alert(1)">`)
//	style := sanitize.CSS(`body { behavior: url(x.htc) }`)
package sanitize
