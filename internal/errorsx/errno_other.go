//go:build !unix && !windows

package errorsx

func classifySyscallError(err error) string {
	return ""
}
