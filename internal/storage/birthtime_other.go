//go:build !linux && !darwin

package storage

import (
	"os"
	"time"
)

func birthTime(_ string, _ os.FileInfo) time.Time {
	return time.Time{}
}
