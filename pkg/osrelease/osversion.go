package osrelease

import "fmt"

type OsVersion struct {
	NAME       string `json:"name" yaml:"name"`
	OID        string `json:"id" yaml:"id"`
	VERSION    string `json:"version,omitempty" yaml:"version,omitempty"`
	VERSION_ID string `json:"version_id,omitempty" yaml:"version_id,omitempty"`
}

func (o *OsVersion) String() string {
	if o.VERSION_ID == "" {
		return o.NAME
	}
	return fmt.Sprintf("%s %s", o.NAME, o.VERSION_ID)
}

// IsDebianFamily reports whether the distribution ships dpkg.
func (o *OsVersion) IsDebianFamily() bool {
	switch o.OID {
	case "debian", "ubuntu", "raspbian", "linuxmint", "kali", "devuan":
		return true
	}
	return false
}
