package core

import (
	"errors"
)

var (
	// ErrInvalidSurface is returned when a renderer is bound to a nil surface.
	ErrInvalidSurface = errors.New("invalid presentable surface")
	// ErrDeviceUnavailable reports that no GPU device or graphics queue could be obtained.
	ErrDeviceUnavailable = errors.New("gpu device or queue unavailable")
	// ErrPipelineCreation reports a shader or pipeline build failure.
	ErrPipelineCreation = errors.New("graphics pipeline creation failed")
	// ErrSurfaceUnavailable is transient: no drawable image could be acquired this frame.
	ErrSurfaceUnavailable = errors.New("surface has no drawable available")
	ErrNotInitialized     = errors.New("renderer not initialized")
	ErrAlreadyInitialized = errors.New("renderer already initialized")
)
