// Package wire encodes and decodes engine values across the network
// boundary. Elements become {__elementId: n} (or {__elementRef: path} when
// branch paths are requested) and players become {__playerRef: seat};
// everything else recurses or passes through unchanged. The package never
// interprets game semantics — only identity.
package wire
