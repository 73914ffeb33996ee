// Package artifacts enumerates CSV artifacts produced inside the workspace.
package artifacts
