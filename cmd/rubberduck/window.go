package main

import (
	"time"

	"github.com/go-gl/glfw/v3.3/glfw"

	"github.com/gekko3d/voxcube"
	"github.com/gekko3d/voxcube/gpu/wgpubackend"
)

// Window is the main world resource holding the GLFW window.
type Window struct {
	glfw    *glfw.Window
	surface *wgpubackend.Surface
	resized bool
}

// WindowModule polls window events once per frame, keeps the surface and
// camera aspect in sync with the framebuffer and exits on Escape or close.
type WindowModule struct {
	Window *Window
}

func (m WindowModule) Install(app *voxcube.App, cmd *voxcube.Commands) {
	w := m.Window
	w.glfw.SetFramebufferSizeCallback(func(_ *glfw.Window, width, height int) {
		w.resized = true
	})
	cmd.AddResources(w, &fpsCounter{})
	app.UseSystem(voxcube.System(pollWindowSystem).InStage(voxcube.Prelude))
	app.UseSystem(voxcube.System(cameraAspectSystem).InStage(voxcube.PreUpdate))
	app.UseSystem(voxcube.System(fpsSystem).InStage(voxcube.Finale))
}

func pollWindowSystem(cmd *voxcube.Commands, w *Window) {
	glfw.PollEvents()
	if w.glfw.ShouldClose() || w.glfw.GetKey(glfw.KeyEscape) == glfw.Press {
		cmd.Exit()
	}
}

func cameraAspectSystem(cmd *voxcube.Commands, w *Window) {
	width, height := w.glfw.GetFramebufferSize()
	if width <= 0 || height <= 0 {
		return
	}
	if w.resized {
		w.resized = false
		if err := w.surface.Resize(width, height); err != nil {
			cmd.Logger().Errorf("resize to %dx%d failed: %v", width, height, err)
		}
	}
	aspect := float32(width) / float32(height)
	voxcube.MakeQuery1[voxcube.Camera3d](cmd).Map(func(eid voxcube.EntityId, camera *voxcube.Camera3d) bool {
		camera.Projection.Aspect = aspect
		return true
	})
}

type fpsCounter struct {
	frames int
	since  time.Duration
}

func fpsSystem(cmd *voxcube.Commands, t *voxcube.Time, counter *fpsCounter) {
	counter.frames++
	counter.since += t.Dt
	if counter.since < time.Second {
		return
	}
	cmd.Logger().Infof("fps %.1f", float64(counter.frames)/counter.since.Seconds())
	counter.frames, counter.since = 0, 0
}
