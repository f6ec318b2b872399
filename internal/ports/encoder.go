package ports

import "context"

// Encoder launches the external encoder and prober binaries.
type Encoder interface {
	// Check resolves the encoder binary without launching anything.
	// Returns domain.ErrBinaryNotFound when it cannot be located.
	Check() error

	// Start spawns a long-running encoder with a writable stdin.
	// The child outlives ctx; use Process.Stop to end it.
	Start(ctx context.Context, args []string) (Process, error)

	// Run executes the encoder to completion.
	// A non-zero exit is reported as *domain.ExitError.
	Run(ctx context.Context, args []string) error

	// ProbeDuration returns the container duration of file in seconds.
	ProbeDuration(ctx context.Context, file string) (float64, error)

	// AudioDevices lists the audio capture devices the encoder can see.
	AudioDevices(ctx context.Context) ([]string, error)

	// DefaultMicrophone returns the first audio capture device, or "" when
	// none is present. A found device is cached; an empty result is not.
	DefaultMicrophone(ctx context.Context) (string, error)
}

// Process is a running encoder child.
type Process interface {
	// Pid returns the operating system process id.
	Pid() int

	// Stop asks the encoder to finish gracefully and escalates to an
	// interrupt and then a kill when it does not exit in time.
	// Safe to call more than once and after the process has exited.
	Stop()

	// Done is closed once the process has exited and its stderr is drained.
	Done() <-chan struct{}

	// Wait blocks until exit and returns *domain.ExitError on a non-zero code.
	Wait(ctx context.Context) error

	// ExitCode returns the exit code, or -1 while running or when killed.
	ExitCode() int

	// Stderr returns the most recent stderr lines.
	Stderr() string
}
