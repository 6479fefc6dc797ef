package util

import "errors"

var (
	ErrCourseNotFound   = errors.New("course not found")
	ErrProgressNotFound = errors.New("progress record not found")
	ErrVersionConflict  = errors.New("progress record was modified concurrently")
)
