package model

type (
	// BuiltImage references a backend-built image. It is owned by the
	// orchestrator and must be released when the run completes unless the
	// keep-image option is set.
	BuiltImage struct {
		ID  string
		Ref string
	}

	// RunResult is the outcome of a successful container run. A non-zero
	// exit code from the contained command is not an error, it is the
	// command's own result and becomes the process exit status.
	RunResult struct {
		ExitCode int
	}
)
