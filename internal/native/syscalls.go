package native

import (
	"os"

	"golang.org/x/sys/unix"
)

// OS passes file system calls through to the [os] package.
type OS struct{}

func (*OS) Getwd() (string, error) {
	return os.Getwd()
}

func (*OS) Mkdir(name string, perm os.FileMode) error {
	return os.Mkdir(name, perm)
}

func (*OS) OpenFile(name string, flag int, perm os.FileMode) (*os.File, error) {
	return os.OpenFile(name, flag, perm)
}

func (*OS) RemoveAll(name string) error {
	return os.RemoveAll(name)
}

func (*OS) Rename(oldpath, newpath string) error {
	return os.Rename(oldpath, newpath)
}

func (*OS) Stat(name string) (os.FileInfo, error) {
	return os.Stat(name)
}

// Unix passes file system calls through to [unix].
type Unix struct{}

func (*Unix) Lstat(path string, stat *unix.Stat_t) error {
	return unix.Lstat(path, stat)
}
