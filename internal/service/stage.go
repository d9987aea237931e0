package service

import (
	"errors"
	"fmt"
)

// Stage names one step of the upload pipeline.
type Stage string

const (
	StageDecode         Stage = "decode"
	StagePlacement      Stage = "placement"
	StageUploadOriginal Stage = "upload_original"
	StageRenderQR       Stage = "render_qr"
	StageComposite      Stage = "composite"
	StageUploadModified Stage = "upload_modified"
	StagePersist        Stage = "persist"
)

// Stages lists pipeline steps in execution order.
var Stages = []Stage{
	StageDecode,
	StagePlacement,
	StageUploadOriginal,
	StageRenderQR,
	StageComposite,
	StageUploadModified,
	StagePersist,
}

// StageError reports which pipeline step failed.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// StageOf returns the failed stage carried by err, if any.
func StageOf(err error) (Stage, bool) {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage, true
	}
	return "", false
}
