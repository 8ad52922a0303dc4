// Package config defines the snapmesh-server configuration: the
// admin HTTP endpoint, the mesh topology, snapshot persistence and
// the built-in workload. Values load through confloader with the
// usual priority: environment over file over defaults.
package config
