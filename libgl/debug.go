package libgl

import (
	"fmt"
	"unsafe"

	"bokeh-gl/liblog"

	"github.com/go-gl/gl/v4.5-core/gl"
	"github.com/rs/zerolog"
)

type LabeledGlObject interface {
	SetDebugLabel(string)
}

func setObjectLabel(namespace, id uint32, label string) {
	if label == "" {
		return
	}
	bytes := []byte(label)
	gl.ObjectLabel(namespace, id, int32(len(bytes)), (*uint8)(unsafe.Pointer(&bytes[0])))
}

func glLog() *zerolog.Logger {
	l := liblog.With("gl")
	return &l
}

// PushDebugGroup names the following commands in GPU debuggers; pair it with gl.PopDebugGroup.
func PushDebugGroup(name string) {
	gl.PushDebugGroup(gl.DEBUG_SOURCE_APPLICATION, 999, -1, gl.Str(name+"\x00"))
}

var errorNames = map[uint32]string{
	gl.INVALID_ENUM:                  "GL_INVALID_ENUM",
	gl.INVALID_VALUE:                 "GL_INVALID_VALUE",
	gl.INVALID_OPERATION:             "GL_INVALID_OPERATION",
	gl.STACK_OVERFLOW:                "GL_STACK_OVERFLOW",
	gl.STACK_UNDERFLOW:               "GL_STACK_UNDERFLOW",
	gl.OUT_OF_MEMORY:                 "GL_OUT_OF_MEMORY",
	gl.INVALID_FRAMEBUFFER_OPERATION: "GL_INVALID_FRAMEBUFFER_OPERATION",
}

// CheckError drains the GL error flags and logs every one of them.
// It returns the first error so callers can count failures, but never stops anything.
func CheckError(where string) error {
	var first error
	for i := 0; i < 16; i++ {
		code := gl.GetError()
		if code == gl.NO_ERROR {
			break
		}
		name, ok := errorNames[code]
		if !ok {
			name = fmt.Sprintf("0x%04x", code)
		}
		glLog().Warn().Str("where", where).Str("error", name).Msg("gl error")
		if first == nil {
			first = fmt.Errorf("%s: %s", where, name)
		}
	}
	return first
}

var debugSources = map[uint32]string{
	gl.DEBUG_SOURCE_API:             "api",
	gl.DEBUG_SOURCE_WINDOW_SYSTEM:   "window system",
	gl.DEBUG_SOURCE_SHADER_COMPILER: "shader compiler",
	gl.DEBUG_SOURCE_THIRD_PARTY:     "third party",
	gl.DEBUG_SOURCE_APPLICATION:     "application",
	gl.DEBUG_SOURCE_OTHER:           "other",
}

var debugTypes = map[uint32]string{
	gl.DEBUG_TYPE_ERROR:               "error",
	gl.DEBUG_TYPE_DEPRECATED_BEHAVIOR: "deprecated behavior",
	gl.DEBUG_TYPE_UNDEFINED_BEHAVIOR:  "undefined behavior",
	gl.DEBUG_TYPE_PORTABILITY:         "portability",
	gl.DEBUG_TYPE_PERFORMANCE:         "performance",
	gl.DEBUG_TYPE_MARKER:              "marker",
	gl.DEBUG_TYPE_PUSH_GROUP:          "push group",
	gl.DEBUG_TYPE_POP_GROUP:           "pop group",
	gl.DEBUG_TYPE_OTHER:               "other",
}

// EnableDebugOutput routes driver debug messages into the gl logger.
// Requires a debug context.
func EnableDebugOutput() {
	gl.Enable(gl.DEBUG_OUTPUT)
	gl.Enable(gl.DEBUG_OUTPUT_SYNCHRONOUS)
	gl.DebugMessageCallback(func(source, gltype, id, severity uint32, length int32, message string, userParam unsafe.Pointer) {
		if gltype == gl.DEBUG_TYPE_PUSH_GROUP || gltype == gl.DEBUG_TYPE_POP_GROUP {
			return
		}
		var event *zerolog.Event
		switch severity {
		case gl.DEBUG_SEVERITY_HIGH:
			event = glLog().Error()
		case gl.DEBUG_SEVERITY_MEDIUM:
			event = glLog().Warn()
		case gl.DEBUG_SEVERITY_LOW:
			event = glLog().Info()
		default:
			event = glLog().Debug()
		}
		event.Str("source", debugSources[source]).Str("type", debugTypes[gltype]).Uint32("id", id).Msg(message)
	}, nil)
}
