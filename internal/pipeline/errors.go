package pipeline

import "errors"

// Sentinel errors for pipeline operations.
// Callers use errors.Is() to check error types.
var (
	// ErrPipelineNotFound is returned when a pipeline document does not exist.
	ErrPipelineNotFound = errors.New("pipeline: not found")

	// ErrPipelineExists is returned when creating a pipeline whose name is taken.
	ErrPipelineExists = errors.New("pipeline: already exists")

	// ErrInvalidPipeline is returned when document validation fails.
	ErrInvalidPipeline = errors.New("pipeline: invalid")

	// ErrInvalidName is returned when a pipeline name is empty or too long.
	ErrInvalidName = errors.New("pipeline: invalid name")

	// ErrInvalidNode is returned when a node definition is malformed.
	ErrInvalidNode = errors.New("pipeline: invalid node")

	// ErrNoNodes is returned when a document defines no nodes.
	ErrNoNodes = errors.New("pipeline: no nodes")

	// ErrInvalidOverride is returned when a pipeline_override patch cannot
	// be parsed or merged.
	ErrInvalidOverride = errors.New("pipeline: invalid override")
)
