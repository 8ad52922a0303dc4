// Package confloader loads server configuration through koanf.
//
// Sources merge with the usual priority, highest first:
//
//  1. Environment variables (SNAPMESH_*)
//  2. Configuration file (YAML)
//  3. Default values
//
// A Watcher built on fsnotify can reload the file on change.
package confloader
