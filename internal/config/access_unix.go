//go:build !windows

package config

import "golang.org/x/sys/unix"

func checkReadable(path string) error {
	return unix.Access(path, unix.R_OK|unix.X_OK)
}

func checkWritable(path string) error {
	return unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK)
}
