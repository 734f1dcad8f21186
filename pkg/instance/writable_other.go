//go:build !unix

package instance

import "os"

// isWritable creates and removes a probe file, since there is no access(2)
func isWritable(dir string) bool {
	f, err := os.CreateTemp(dir, ".ec2utils-probe-*")
	if err != nil {
		return false
	}
	name := f.Name()
	f.Close()
	_ = os.Remove(name)
	return true
}
