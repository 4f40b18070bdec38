package constants

// Service identity
const (
	// ServiceName identifies the compiler in logs, traces and metrics
	ServiceName = "workflow-compiler"

	// ModulePath is the Go module path of this service
	ModulePath = "github.com/sflowg/workflow-compiler"
)

// Version is the compiler release. Overridden at link time with
// -ldflags "-X github.com/sflowg/workflow-compiler/internal/constants.Version=..."
var Version = "0.1.0"

// Application runtime defaults
const (
	// DefaultPort is the default HTTP server port
	DefaultPort = "8080"

	// DefaultConfigFile is read by the CLI when --config is not given and the file exists
	DefaultConfigFile = "compiler.yaml"
)
