package fs

import (
	"os"
	"os/user"
	"path/filepath"
)

// DirName is the directory under the user's home holding tenantd data files.
const DirName = ".tenantd"

// TenantdDir retrieves the tenantd data directory.
func TenantdDir() (string, error) {
	var dir string
	// By default, store data files in current users home directory
	u, err := user.Current()
	if err == nil {
		dir = u.HomeDir
	} else if home := os.Getenv("HOME"); home != "" {
		dir = home
	} else {
		wd, err := os.Getwd()
		if err != nil {
			return "", err
		}
		dir = wd
	}
	dir = filepath.Join(dir, DirName)

	return dir, nil
}

// DataFile returns the path of name inside the tenantd directory, falling
// back to the working directory when no home can be found.
func DataFile(name string) string {
	dir, err := TenantdDir()
	if err != nil {
		return name
	}
	return filepath.Join(dir, name)
}
