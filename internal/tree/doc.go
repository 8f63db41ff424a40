// Package tree implements the two filesystem primitives a build is made of:
// Clean, which empties an output directory while leaving hidden entries alone,
// and Collect, which recursively enumerates files matching a glob pattern.
package tree
