//go:build !darwin

package coords

// DefaultPolicy divides by the monitor scale.
const DefaultPolicy = PolicyScaling
