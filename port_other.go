//go:build !linux

package serial

import "errors"

func openNative(Config) (Port, error) {
	return nil, errors.New("the native driver is only available on linux")
}
