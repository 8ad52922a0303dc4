// Package sim hosts the built-in token transfer workload. Each process
// carries an account balance and transfers random amounts to its
// neighbors. Transfers conserve the mesh-wide total, which makes any
// assembled snapshot checkable: captured balances plus recorded
// in-transit amounts must always equal the initial total.
package sim
