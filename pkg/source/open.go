package source

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
)

// Source kinds accepted by Open.
const (
	KindAuto     = "auto"
	KindSysfs    = "sysfs"
	KindDistatus = "distatus"
)

// Open returns the source named by kind. KindAuto prefers sysfs and falls
// back to distatus when no sysfs battery exists.
func Open(kind string, sysfsRoot string) (Source, error) {
	switch kind {
	case KindSysfs:
		return NewSysfs(sysfsRoot)
	case KindDistatus:
		return NewDistatus(), nil
	case KindAuto, "":
		s, err := NewSysfs(sysfsRoot)
		if err == nil {
			return s, nil
		}
		if !errors.Is(err, ErrNoBattery) {
			return nil, err
		}
		logrus.Info("no sysfs battery found, falling back to distatus")
		return NewDistatus(), nil
	default:
		return nil, fmt.Errorf("unknown battery source %q", kind)
	}
}
