package main

import (
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/go-gl/mathgl/mgl32"
)

// Input keeps the key and mouse state of this and the previous frame, so taps can be
// told apart from held keys.
type Input struct {
	curr inputState
	prev inputState
}

type inputState struct {
	time         float32
	cursorPos    mgl32.Vec2
	keys         []bool
	mousebuttons []bool
}

func NewInput(ctx *glfw.Window) *Input {
	i := &Input{
		curr: newInputState(),
		prev: newInputState(),
	}
	i.Update(ctx)
	i.prev.cursorPos = i.curr.cursorPos
	// dt of the first frame must not be zero
	i.prev.time = i.curr.time - 1./60.
	return i
}

func newInputState() inputState {
	return inputState{
		keys:         make([]bool, glfw.KeyLast+1),
		mousebuttons: make([]bool, glfw.MouseButtonLast+1),
	}
}

func (i *Input) CursorDelta() mgl32.Vec2 {
	return i.curr.cursorPos.Sub(i.prev.cursorPos)
}

func (i *Input) TimeDelta() float32 {
	return i.curr.time - i.prev.time
}

func (i *Input) IsKeyDown(key glfw.Key) bool {
	return i.curr.keys[key]
}

func (i *Input) IsKeyTap(key glfw.Key) bool {
	return i.curr.keys[key] && !i.prev.keys[key]
}

func (i *Input) IsMouseDown(button glfw.MouseButton) bool {
	return i.curr.mousebuttons[button]
}

// Movement is the camera local direction of the held WASD, space and ctrl keys.
func (i *Input) Movement() mgl32.Vec3 {
	var v mgl32.Vec3
	axes := []struct {
		key  glfw.Key
		axis int
		sign float32
	}{
		{glfw.KeyW, 2, -1}, {glfw.KeyS, 2, 1},
		{glfw.KeyA, 0, -1}, {glfw.KeyD, 0, 1},
		{glfw.KeySpace, 1, 1}, {glfw.KeyLeftControl, 1, -1},
	}
	for _, a := range axes {
		if i.IsKeyDown(a.key) {
			v[a.axis] += a.sign
		}
	}
	return v
}

func (i *Input) Update(ctx *glfw.Window) {
	// reuse the slices of the frame before last
	keys := i.prev.keys
	mousebuttons := i.prev.mousebuttons
	i.prev = i.curr
	cursorX, cursorY := ctx.GetCursorPos()

	for key := int(glfw.KeySpace); key <= int(glfw.KeyLast); key++ {
		keys[key] = ctx.GetKey(glfw.Key(key)) != glfw.Release
	}
	for button := 0; button <= int(glfw.MouseButtonLast); button++ {
		mousebuttons[button] = ctx.GetMouseButton(glfw.MouseButton(button)) != glfw.Release
	}

	i.curr = inputState{
		time:         float32(glfw.GetTime()),
		cursorPos:    mgl32.Vec2{float32(cursorX), float32(cursorY)},
		keys:         keys,
		mousebuttons: mousebuttons,
	}
}
