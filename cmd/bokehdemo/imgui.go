package main

import (
	"embed"
	"fmt"
	"unsafe"

	"bokeh-gl/libgl"

	"github.com/go-gl/gl/v4.5-core/gl"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/inkyblackness/imgui-go/v4"
)

//go:embed shaders
var shaders embed.FS

// ImGui feeds glfw input to imgui and renders its draw lists.
type ImGui struct {
	IO        imgui.IO
	context   *imgui.Context
	vao       libgl.UnboundVertexArray
	vbo       libgl.UnboundBuffer
	vboSize   int
	ebo       libgl.UnboundBuffer
	eboSize   int
	atlas     libgl.UnboundTexture
	shader    libgl.UnboundShaderPipeline
	frameTime float32
}

func NewImGui(win *glfw.Window) (*ImGui, error) {
	shader := libgl.NewPipeline()
	shader.SetDebugLabel("imgui")
	for _, name := range []string{"shaders/imgui.vert", "shaders/imgui.frag"} {
		prog, err := libgl.NewShaderFromFS(shaders, name)
		if err == nil {
			err = prog.Compile()
		}
		if err != nil {
			shader.Delete()
			return nil, fmt.Errorf("imgui %v: %w", name, err)
		}
		shader.Attach(prog, libgl.StageBit(prog.Stage()))
	}

	context := imgui.CreateContext(nil)
	io := imgui.CurrentIO()
	dispWidth, dispHeight := win.GetSize()
	io.SetDisplaySize(imgui.Vec2{X: float32(dispWidth), Y: float32(dispHeight)})
	io.SetIniFilename("")
	imgui.StyleColorsDark()

	vao := libgl.NewVertexArray()
	vao.SetDebugLabel("imgui")
	_, vertexOffsetPos, vertexOffsetUv, vertexOffsetCol := imgui.VertexBufferLayout()
	vao.Layout(0, 0, 2, gl.FLOAT, false, vertexOffsetPos)
	vao.Layout(0, 1, 2, gl.FLOAT, false, vertexOffsetUv)
	vao.Layout(0, 2, 4, gl.UNSIGNED_BYTE, true, vertexOffsetCol)

	image := io.Fonts().TextureDataRGBA32()
	atlas := libgl.NewTexture2D(gl.RGBA8, image.Width, image.Height)
	atlas.SetDebugLabel("imgui font atlas")
	atlas.FilterMode(gl.LINEAR, gl.LINEAR)
	atlas.Load(0, image.Width, image.Height, gl.RGBA, unsafe.Slice((*byte)(image.Pixels), image.Width*image.Height*4))
	io.Fonts().SetTextureID(imgui.TextureID(atlas.Id()))

	win.SetMouseButtonCallback(func(w *glfw.Window, button glfw.MouseButton, action glfw.Action, mods glfw.ModifierKey) {
		if int(button) < 5 {
			io.SetMouseButtonDown(int(button), action == glfw.Press)
		}
	})
	win.SetCursorPosCallback(func(w *glfw.Window, mx, my float64) {
		io.SetMousePosition(imgui.Vec2{X: float32(mx), Y: float32(my)})
	})
	win.SetScrollCallback(func(w *glfw.Window, x, y float64) {
		io.AddMouseWheelDelta(float32(x), float32(y))
	})
	win.SetCharCallback(func(w *glfw.Window, char rune) {
		io.AddInputCharacters(string(char))
	})
	win.SetKeyCallback(func(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
		if key == glfw.KeyUnknown {
			return
		}
		if action == glfw.Press {
			io.KeyPress(int(key))
		}
		if action == glfw.Release {
			io.KeyRelease(int(key))
		}

		// Modifiers are not reliable across systems
		io.KeyCtrl(int(glfw.KeyLeftControl), int(glfw.KeyRightControl))
		io.KeyShift(int(glfw.KeyLeftShift), int(glfw.KeyRightShift))
		io.KeyAlt(int(glfw.KeyLeftAlt), int(glfw.KeyRightAlt))
		io.KeySuper(int(glfw.KeyLeftSuper), int(glfw.KeyRightSuper))
	})

	keys := map[int]glfw.Key{
		imgui.KeyTab:        glfw.KeyTab,
		imgui.KeyLeftArrow:  glfw.KeyLeft,
		imgui.KeyRightArrow: glfw.KeyRight,
		imgui.KeyUpArrow:    glfw.KeyUp,
		imgui.KeyDownArrow:  glfw.KeyDown,
		imgui.KeyHome:       glfw.KeyHome,
		imgui.KeyEnd:        glfw.KeyEnd,
		imgui.KeyDelete:     glfw.KeyDelete,
		imgui.KeyBackspace:  glfw.KeyBackspace,
		imgui.KeyEnter:      glfw.KeyEnter,
		imgui.KeyEscape:     glfw.KeyEscape,
		imgui.KeyA:          glfw.KeyA,
		imgui.KeyC:          glfw.KeyC,
		imgui.KeyV:          glfw.KeyV,
		imgui.KeyX:          glfw.KeyX,
	}
	for imKey, glfwKey := range keys {
		io.KeyMap(imKey, int(glfwKey))
	}

	return &ImGui{
		IO:        io,
		context:   context,
		frameTime: float32(glfw.GetTime()),
		vao:       vao,
		atlas:     atlas,
		shader:    shader,
	}, nil
}

// NewFrame starts recording widgets for this frame.
func (gui *ImGui) NewFrame() {
	win := glfw.GetCurrentContext()
	dispWidth, dispHeight := win.GetSize()
	gui.IO.SetDisplaySize(imgui.Vec2{X: float32(dispWidth), Y: float32(dispHeight)})
	now := float32(glfw.GetTime())
	if dt := now - gui.frameTime; dt > 0 {
		gui.IO.SetDeltaTime(dt)
	}
	gui.frameTime = now
	imgui.NewFrame()
}

// WantsInput reports whether imgui uses the mouse or keyboard this frame,
// the camera should then ignore them.
func (gui *ImGui) WantsInput() bool {
	return gui.IO.WantCaptureMouse() || gui.IO.WantCaptureKeyboard()
}

// grow replaces buf with a larger immutable buffer when size exceeds its capacity.
func grow(buf libgl.UnboundBuffer, capacity *int, size int, label string) libgl.UnboundBuffer {
	if buf != nil && size <= *capacity {
		return buf
	}
	if buf != nil {
		buf.Delete()
	}
	*capacity = size
	buf = libgl.NewBuffer()
	buf.SetDebugLabel(label)
	buf.AllocateEmpty(size, gl.DYNAMIC_STORAGE_BIT)
	return buf
}

func (gui *ImGui) Draw() {
	libgl.PushDebugGroup("Draw ImGui")
	defer gl.PopDebugGroup()

	win := glfw.GetCurrentContext()
	dispWidth, dispHeight := win.GetSize()
	fbWidth, fbHeight := win.GetFramebufferSize()
	if dispWidth == 0 || dispHeight == 0 {
		return
	}
	libgl.State.Viewport(0, 0, fbWidth, fbHeight)
	libgl.DefaultFramebuffer().Bind(gl.DRAW_FRAMEBUFFER)
	ortho := mgl32.Ortho2D(0, float32(dispWidth), float32(dispHeight), 0)

	gui.vao.Bind()
	gui.shader.Bind()
	gui.shader.VertexStage().SetUniform("u_proj_mat", ortho)

	libgl.State.SetEnabled(libgl.Blend, libgl.ScissorTest)
	libgl.State.BlendEquation(libgl.BlendFuncAdd)
	libgl.State.BlendFunc(libgl.BlendSrcAlpha, libgl.BlendOneMinusSrcAlpha)
	libgl.State.BindSampler(0, 0)

	imgui.Render()
	drawData := imgui.RenderedDrawData()
	drawData.ScaleClipRects(imgui.Vec2{
		X: float32(fbWidth) / float32(dispWidth),
		Y: float32(fbHeight) / float32(dispHeight),
	})

	vertexSize, _, _, _ := imgui.VertexBufferLayout()
	indexSize := imgui.IndexBufferLayout()
	var indexType uint32 = gl.UNSIGNED_SHORT
	if indexSize == 4 {
		indexType = gl.UNSIGNED_INT
	}

	for _, list := range drawData.CommandLists() {
		vertexBuffer, vertexBufferSize := list.VertexBuffer()
		indexBuffer, indexBufferSize := list.IndexBuffer()
		if vertexBufferSize == 0 || indexBufferSize == 0 {
			continue
		}

		prevVbo, prevEbo := gui.vbo, gui.ebo
		gui.vbo = grow(gui.vbo, &gui.vboSize, vertexBufferSize, "imgui vertices")
		gui.ebo = grow(gui.ebo, &gui.eboSize, indexBufferSize, "imgui indices")
		if gui.vbo != prevVbo {
			gui.vao.BindBuffer(0, gui.vbo, 0, vertexSize)
		}
		if gui.ebo != prevEbo {
			gui.vao.BindElementBuffer(gui.ebo)
		}
		gl.NamedBufferSubData(gui.vbo.Id(), 0, vertexBufferSize, vertexBuffer)
		gl.NamedBufferSubData(gui.ebo.Id(), 0, indexBufferSize, indexBuffer)

		for _, cmd := range list.Commands() {
			if cmd.HasUserCallback() {
				cmd.CallUserCallback(list)
				continue
			}
			libgl.State.BindTextureUnit(0, uint32(cmd.TextureID()))
			clipRect := cmd.ClipRect()
			x, y := int(clipRect.X), fbHeight-int(clipRect.W)
			if y < 0 {
				y = 0
			}
			libgl.State.Scissor(x, y, int(clipRect.Z-clipRect.X), int(clipRect.W-clipRect.Y))
			gl.DrawElementsBaseVertexWithOffset(gl.TRIANGLES, int32(cmd.ElementCount()), indexType,
				uintptr(cmd.IndexOffset()*indexSize), int32(cmd.VertexOffset()))
		}
	}
	libgl.State.SetEnabled()
}

func (gui *ImGui) Release() {
	for _, res := range []interface{ Delete() }{gui.vbo, gui.ebo} {
		if res != nil {
			res.Delete()
		}
	}
	gui.vao.Delete()
	gui.atlas.Delete()
	gui.shader.Delete()
	gui.context.Destroy()
}
