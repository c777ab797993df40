package mmap

import "errors"

// AccessPattern is an advisory hint about how mapped data will be read.
type AccessPattern int

const (
	AccessDefault AccessPattern = iota
	// AccessSequential suits whole-file decoding.
	AccessSequential
	// AccessRandom suits scattered lookups.
	AccessRandom
	AccessWillNeed
)

var (
	// ErrClosed is returned when a closed mapping is accessed.
	ErrClosed = errors.New("mmap: mapping is closed")
	// ErrInvalidSize is returned for files whose size can not be mapped.
	ErrInvalidSize = errors.New("mmap: invalid file size")
	// ErrInvalidOffset is returned for negative read offsets.
	ErrInvalidOffset = errors.New("mmap: invalid offset")
)
