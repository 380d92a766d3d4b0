package libgl

import (
	"fmt"
	"io/fs"
	"log"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-gl/gl/v4.5-core/gl"
	"github.com/go-gl/mathgl/mgl32"
)

var shaderMetaPattern = regexp.MustCompile(`(?m)^\/\/meta:(\w+)(.+)$`)
var shaderDefinePattern = regexp.MustCompile(`(?m)^\s*#define ([\w\d]+) ?(.*)$`)
var shaderVersionPattern = regexp.MustCompile(`(?m)^\s*#version.+$`)

type shaderPipeline struct {
	glId      uint32
	vertStage ShaderProgram
	geomStage ShaderProgram
	fragStage ShaderProgram
	compStage ShaderProgram
}

type UnboundShaderPipeline interface {
	LabeledGlObject
	Id() uint32
	Bind() BoundShaderPipeline
	Attach(program ShaderProgram, stages int)
	VertexStage() ShaderProgram
	GeometryStage() ShaderProgram
	FragmentStage() ShaderProgram
	// Delete deletes the pipeline and every attached program
	Delete()
}

type BoundShaderPipeline interface {
	UnboundShaderPipeline
}

func NewPipeline() UnboundShaderPipeline {
	var id uint32
	gl.CreateProgramPipelines(1, &id)
	return &shaderPipeline{
		glId: id,
	}
}

func (p *shaderPipeline) Id() uint32 {
	return p.glId
}

func (p *shaderPipeline) SetDebugLabel(label string) {
	setObjectLabel(gl.PROGRAM_PIPELINE, p.glId, label)
}

func (p *shaderPipeline) Attach(program ShaderProgram, stages int) {
	gl.UseProgramStages(p.glId, uint32(stages), program.Id())
	if stages&gl.VERTEX_SHADER_BIT != 0 {
		p.vertStage = program
	}
	if stages&gl.GEOMETRY_SHADER_BIT != 0 {
		p.geomStage = program
	}
	if stages&gl.FRAGMENT_SHADER_BIT != 0 {
		p.fragStage = program
	}
	if stages&gl.COMPUTE_SHADER_BIT != 0 {
		p.compStage = program
	}
}

func (p *shaderPipeline) VertexStage() ShaderProgram   { return p.vertStage }
func (p *shaderPipeline) GeometryStage() ShaderProgram { return p.geomStage }
func (p *shaderPipeline) FragmentStage() ShaderProgram { return p.fragStage }

func (p *shaderPipeline) Bind() BoundShaderPipeline {
	State.BindProgramPipeline(p.glId)
	return BoundShaderPipeline(p)
}

func (p *shaderPipeline) Delete() {
	seen := map[ShaderProgram]bool{}
	for _, prog := range []ShaderProgram{p.vertStage, p.geomStage, p.fragStage, p.compStage} {
		if prog != nil && !seen[prog] {
			prog.Delete()
			seen[prog] = true
		}
	}
	if State != nil && State.ProgramPipeline == p.glId {
		State.ProgramPipeline = 0
	}
	gl.DeleteProgramPipelines(1, &p.glId)
	p.glId = 0
}

type glslDef struct {
	marker string
	name   string
	value  string
}

type program struct {
	uniformLocations map[string]int32
	definitions      map[string]glslDef
	versionEnd       int
	glId             uint32
	name             string
	sourceTemplate   string
	stage            int
}

type ShaderProgram interface {
	Id() uint32
	Name() string
	Stage() int
	Compile() error
	CompileWith(defs map[string]string) error
	Delete()
	GetUniformLocation(name string) int32
	SetUniform(name string, value any)
}

// NewShader parses a separable program. A `//meta:name <name>` line names it for error
// messages, and every `#define` can be overridden at compile time.
func NewShader(source string, stage int) ShaderProgram {
	name := "untitled"
	for _, match := range shaderMetaPattern.FindAllStringSubmatch(source, -1) {
		if strings.EqualFold(match[1], "name") {
			name = strings.TrimSpace(match[2])
		}
	}

	defineMatches := shaderDefinePattern.FindAllStringSubmatch(source, -1)
	definitions := make(map[string]glslDef, len(defineMatches))
	markers := make(map[string]string, len(defineMatches))
	for i, match := range defineMatches {
		marker := fmt.Sprintf("$def_%v$", i)
		definitions[strings.ToLower(match[1])] = glslDef{
			marker: marker,
			name:   match[1],
			value:  strings.TrimSpace(match[2]),
		}
		markers[match[0]] = marker
	}
	source = shaderDefinePattern.ReplaceAllStringFunc(source, func(s string) string {
		return markers[s]
	})

	versionEnd := 0
	if loc := shaderVersionPattern.FindStringIndex(source); loc != nil {
		versionEnd = loc[1]
	}

	return &program{
		definitions:    definitions,
		name:           name,
		stage:          stage,
		sourceTemplate: source,
		versionEnd:     versionEnd,
	}
}

// NewShaderFromFS reads a shader file from fsys; the stage is derived from the extension
// (.vert, .geom, .frag, .comp).
func NewShaderFromFS(fsys fs.FS, name string) (ShaderProgram, error) {
	stage, err := stageOf(name)
	if err != nil {
		return nil, err
	}
	src, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, fmt.Errorf("could not read shader %v: %w", name, err)
	}
	return NewShader(string(src), stage), nil
}

func stageOf(name string) (int, error) {
	switch {
	case strings.HasSuffix(name, ".vert"):
		return gl.VERTEX_SHADER, nil
	case strings.HasSuffix(name, ".geom"):
		return gl.GEOMETRY_SHADER, nil
	case strings.HasSuffix(name, ".frag"):
		return gl.FRAGMENT_SHADER, nil
	case strings.HasSuffix(name, ".comp"):
		return gl.COMPUTE_SHADER, nil
	}
	return 0, fmt.Errorf("unknown shader stage of %v", name)
}

func StageBit(stage int) int {
	switch stage {
	case gl.VERTEX_SHADER:
		return gl.VERTEX_SHADER_BIT
	case gl.GEOMETRY_SHADER:
		return gl.GEOMETRY_SHADER_BIT
	case gl.FRAGMENT_SHADER:
		return gl.FRAGMENT_SHADER_BIT
	case gl.COMPUTE_SHADER:
		return gl.COMPUTE_SHADER_BIT
	}
	log.Panicf("%d is not a valid shader stage\n", stage)
	return 0
}

func (prog *program) Name() string {
	return prog.name
}

func (prog *program) Stage() int {
	return prog.stage
}

func (prog *program) Compile() error {
	return prog.CompileWith(nil)
}

func (prog *program) CompileWith(defs map[string]string) error {
	source := prog.sourceTemplate

	for n, v := range defs {
		if def, ok := prog.definitions[strings.ToLower(n)]; ok {
			source = strings.Replace(source, def.marker, fmt.Sprintf("#define %v %v", def.name, v), 1)
		} else {
			source = source[:prog.versionEnd] + fmt.Sprintf("\n#define %v %v", n, v) + source[prog.versionEnd:]
		}
	}
	for _, def := range prog.definitions {
		source = strings.Replace(source, def.marker, fmt.Sprintf("#define %v %v", def.name, def.value), 1)
	}

	cStrs, free := gl.Strs(source + "\x00")
	id := gl.CreateShaderProgramv(uint32(prog.stage), 1, cStrs)
	free()

	var ok int32
	gl.GetProgramiv(id, gl.LINK_STATUS, &ok)
	if ok == gl.FALSE {
		defer gl.DeleteProgram(id)
		return fmt.Errorf("failed to link %v shader, log: %v", prog.name, readProgramInfoLog(id))
	}

	if prog.glId != 0 {
		gl.DeleteProgram(prog.glId)
	}
	prog.glId = id
	prog.uniformLocations = map[string]int32{}
	return nil
}

func (prog *program) Id() uint32 {
	return prog.glId
}

func (prog *program) Delete() {
	gl.DeleteProgram(prog.glId)
	prog.glId = 0
}

func readProgramInfoLog(id uint32) string {
	var logLength int32
	gl.GetProgramiv(id, gl.INFO_LOG_LENGTH, &logLength)

	log := strings.Repeat("\x00", int(logLength+1))
	gl.GetProgramInfoLog(id, logLength, nil, gl.Str(log))
	return strings.TrimRight(log, "\x00")
}

func (prog *program) GetUniformLocation(name string) int32 {
	if location, ok := prog.uniformLocations[name]; ok {
		return location
	}

	location := gl.GetUniformLocation(prog.glId, gl.Str(name+"\x00"))
	prog.uniformLocations[name] = location

	if location == -1 {
		glLog().Warn().Str("shader", prog.name).Str("uniform", name).Msg("could not get uniform location")
	}

	return location
}

func (prog *program) SetUniform(name string, value any) {
	location := prog.GetUniformLocation(name)
	if location == -1 {
		return
	}
	setProgramUniformAny(prog.glId, location, value)
}

func setProgramUniformAny(prog uint32, location int32, value any) {
	for refVal := reflect.ValueOf(value); refVal.Kind() == reflect.Ptr; refVal = reflect.ValueOf(value) {
		value = refVal.Elem().Interface()
	}

	switch v := value.(type) {
	case float32:
		gl.ProgramUniform1f(prog, location, v)
	case float64:
		gl.ProgramUniform1f(prog, location, float32(v))
	case int:
		gl.ProgramUniform1i(prog, location, int32(v))
	case int32:
		gl.ProgramUniform1i(prog, location, v)
	case uint32:
		gl.ProgramUniform1ui(prog, location, v)
	case bool:
		var i int32
		if v {
			i = 1
		}
		gl.ProgramUniform1i(prog, location, i)
	case [2]int32:
		gl.ProgramUniform2i(prog, location, v[0], v[1])
	case mgl32.Vec2:
		gl.ProgramUniform2f(prog, location, v.X(), v.Y())
	case []mgl32.Vec2:
		if len(v) > 0 {
			gl.ProgramUniform2fv(prog, location, int32(len(v)), &v[0][0])
		}
	case mgl32.Vec3:
		gl.ProgramUniform3f(prog, location, v.X(), v.Y(), v.Z())
	case mgl32.Vec4:
		gl.ProgramUniform4f(prog, location, v.X(), v.Y(), v.Z(), v.W())
	case mgl32.Mat4:
		gl.ProgramUniformMatrix4fv(prog, location, 1, false, &v[0])
	default:
		log.Panicf("Unsupported type %v", reflect.TypeOf(value))
	}
}
