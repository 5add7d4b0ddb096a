//go:build windows

package config

import (
	"errors"
	"io"
	"os"
)

func checkReadable(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.Readdirnames(1)
	if err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// checkWritable creates and removes a probe file; ACLs make mode bits
// meaningless on Windows.
func checkWritable(path string) error {
	f, err := os.CreateTemp(path, ".cinesync-probe-*")
	if err != nil {
		return err
	}
	name := f.Name()
	f.Close()
	return os.Remove(name)
}
