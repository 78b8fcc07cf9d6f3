// Package preview holds the types shared by the preview engine packages.
package preview

// ErrorKind classifies why a preview did not succeed.
type ErrorKind string

const (
	ErrNone                ErrorKind = ""
	ErrSetupFailure        ErrorKind = "setup_failure"
	ErrRuntimeException    ErrorKind = "runtime_exception"
	ErrTimeoutExceeded     ErrorKind = "timeout_exceeded"
	ErrUnsupportedFileType ErrorKind = "unsupported_file_type"
	ErrCancelled           ErrorKind = "cancelled"
	ErrRenderFailure       ErrorKind = "render_failure"
)

// String returns the wire name of the kind.
func (k ErrorKind) String() string {
	if k == ErrNone {
		return "none"
	}
	return string(k)
}
