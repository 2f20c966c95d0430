//go:build !linux

package shm

type unsupportedOpener struct{}

func DefaultOpener() Opener {
	return unsupportedOpener{}
}

func (unsupportedOpener) OpenRegion(name string) (Region, error) {
	return nil, ErrNotSupported
}

func (unsupportedOpener) OpenSignal(name string) (Signal, error) {
	return nil, ErrNotSupported
}
