// Command rubberduck renders voxel ducks, either two of them or a stress
// grid of (2N+1)² sharing one voxel asset.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/voxcube"
	"github.com/gekko3d/voxcube/gpu"
	"github.com/gekko3d/voxcube/gpu/wgpubackend"
)

func init() {
	// GLFW and the surface must stay on the main thread.
	runtime.LockOSThread()
}

func main() {
	var (
		configPath  = flag.String("config", "", "TOML config file")
		stress      = flag.Int("stress", 0, "spawn a (2N+1)x(2N+1) grid of ducks sharing one voxel asset; -stress 20 is the usual stress run")
		wireframe   = flag.Bool("wireframe", true, "draw the global wireframe overlay")
		msaa        = flag.Uint("msaa", 1, "msaa samples, 1 or 4")
		transparent = flag.Bool("transparent", false, "queue voxels into the transparent phase")
		model       = flag.String("model", "", "load the duck from a .vox file or a 256x16 .png slice atlas")
		debug       = flag.Bool("debug", false, "enable debug logging")
		logPath     = flag.String("log", "", "write log output to this file instead of stdout and stderr")
	)
	flag.Parse()

	cfg := voxcube.DefaultConfig()
	cfg.Msaa = 1
	if *configPath != "" {
		var err error
		if cfg, err = voxcube.LoadConfig(*configPath); err != nil {
			log.Fatal(err)
		}
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "stress":
			cfg.Stress = *stress
		case "wireframe":
			cfg.Wireframe.Enabled = *wireframe
		case "msaa":
			cfg.Msaa = uint32(*msaa)
		case "transparent":
			if *transparent {
				cfg.Phase = voxcube.VoxelPhaseTransparent.String()
			} else {
				cfg.Phase = voxcube.VoxelPhaseAlphaMask.String()
			}
		case "debug":
			cfg.Debug = *debug
		}
	})
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}

	duck := duckModel()
	if *model != "" {
		var err error
		if duck, err = loadModel(*model); err != nil {
			log.Fatal(err)
		}
	}

	var logOut io.Writer
	if *logPath != "" {
		f, err := os.Create(*logPath)
		if err != nil {
			log.Fatal(err)
		}
		defer f.Close()
		logOut = f
	}

	if err := run(cfg, duck, logOut); err != nil {
		log.Fatal(err)
	}
}

func run(cfg voxcube.Config, duck voxcube.VoxelData, logOut io.Writer) error {
	if err := glfw.Init(); err != nil {
		return fmt.Errorf("failed to init glfw: %w", err)
	}
	defer glfw.Terminate()

	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	glfw.WindowHint(glfw.Resizable, glfw.True)
	win, err := glfw.CreateWindow(cfg.Window.Width, cfg.Window.Height, cfg.Window.Title, nil, nil)
	if err != nil {
		return fmt.Errorf("failed to create window: %w", err)
	}
	defer win.Destroy()

	surface, err := wgpubackend.NewSurface(win, cfg.Msaa)
	if err != nil {
		return err
	}
	defer surface.Release()

	msaa := voxcube.Msaa{Samples: cfg.Msaa}
	modules := []voxcube.Module{
		voxcube.LoggingModule{Prefix: "rubberduck", Debug: cfg.Debug, Output: logOut},
		voxcube.TimeModule{},
		&msaaModule{msaa: msaa},
		voxcube.TransformModule{},
		voxcube.VisibilityModule{},
		voxcube.RenderModule{
			Device:          surface.Device,
			Frames:          surface,
			ColorFormat:     surface.Format,
			ValidateShaders: cfg.ValidateShaders,
		},
		voxcube.VoxelModule{Phase: cfg.VoxelPhase()},
	}
	if cfg.Wireframe.Enabled {
		modules = append(modules, voxcube.VoxelWireframeModule{Global: cfg.Wireframe.Global})
	}
	modules = append(modules,
		WindowModule{Window: &Window{glfw: win, surface: surface}},
		sceneModule{duck: duck, stress: cfg.Stress},
	)

	app := voxcube.NewAppBuilder().
		UseModule(modules...).
		Build()
	app.Run()
	return nil
}

// msaaModule sets the sample count before the render module falls back to
// the default.
type msaaModule struct {
	msaa voxcube.Msaa
}

func (m *msaaModule) Install(app *voxcube.App, cmd *voxcube.Commands) {
	cmd.AddResources(&m.msaa)
}

type sceneModule struct {
	duck   voxcube.VoxelData
	stress int
}

func (m sceneModule) Install(app *voxcube.App, cmd *voxcube.Commands) {
	assets := voxcube.Resource[voxcube.Assets[voxcube.VoxelData]](cmd)
	// The scene keeps the reference from Add, so the asset outlives the
	// ducks even if every entity is removed.
	duck := assets.Add(m.duck)

	if m.stress > 0 {
		n := m.stress
		for x := -n; x <= n; x++ {
			for z := -n; z <= n; z++ {
				pos := mgl32.Vec3{2 * float32(x), 0, 2 * float32(z)}
				cmd.AddEntity(voxcube.VoxelBundle(duck, voxcube.TransformAt(pos))...)
			}
		}
		cmd.Logger().Infof("block count %d", (2*n+1)*(2*n+1))
	} else {
		cmd.AddEntity(voxcube.VoxelBundle(duck, voxcube.TransformAt(mgl32.Vec3{0, 0, 0}))...)
		cmd.AddEntity(voxcube.VoxelBundle(duck, voxcube.TransformAt(mgl32.Vec3{2, 0, 0}))...)
	}

	camera := voxcube.Camera3d{
		Projection: voxcube.DefaultPerspective(),
		ClearColor: gpu.Color{R: 0.4, G: 0.4, B: 0.4, A: 1},
	}
	eye := voxcube.LookAt(mgl32.Vec3{-1, 1.25, 2.5}, mgl32.Vec3{}, mgl32.Vec3{0, 1, 0})
	cmd.AddEntity(voxcube.Camera3dBundle(camera, eye)...)
}

func loadModel(path string) (voxcube.VoxelData, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".vox":
		vox, err := voxcube.LoadVoxFile(path)
		if err != nil {
			return voxcube.VoxelData{}, err
		}
		return voxcube.VoxelDataFromVox(vox, 0)
	case ".png":
		f, err := os.Open(path)
		if err != nil {
			return voxcube.VoxelData{}, err
		}
		defer f.Close()
		return voxcube.LoadVoxelDataPNG(f)
	}
	return voxcube.VoxelData{}, fmt.Errorf("%s: unsupported model format", path)
}
