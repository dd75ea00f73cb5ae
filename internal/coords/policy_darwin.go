//go:build darwin

package coords

// DefaultPolicy on macOS skips the scale division: the hook reports mouse
// positions in points, already divided by the backing scale factor.
const DefaultPolicy = PolicyOffsetOnly
