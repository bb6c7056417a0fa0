// stagetool is a CLI for inspecting, framing and re-exporting glTF models.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	gomath "math"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/modelstage/internal/config"
	"github.com/Faultbox/modelstage/internal/engine/animation"
	"github.com/Faultbox/modelstage/internal/engine/framing"
	"github.com/Faultbox/modelstage/internal/logger"
	"github.com/Faultbox/modelstage/internal/observability"
	"github.com/Faultbox/modelstage/internal/viewer"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	var err error
	switch command {
	case "info":
		err = cmdInfo(args)
	case "frame":
		err = cmdFrame(args)
	case "variants", "v":
		err = cmdVariants(args)
	case "export", "x":
		err = cmdExport(args)
	case "play":
		err = cmdPlay(args)
	case "schema":
		err = cmdSchema(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`stagetool - glTF model stage utility

Usage:
  stagetool <command> [options] <model>

Commands:
  info <model>                 Show document and scene information
  frame <model>                Show framing for the configured viewport
  variants <model> [variant]   List variants, or apply one and show materials
  export <model> -o <file>     Re-export the model (optionally with a variant)
  play <model>                 Play an animation headlessly and report frames
  schema <model>               Print schema.org 3DModel structured data

Models may be local paths, file:// URLs or http(s) URLs.
Every command accepts -config, -debug, -width, -height, -fov, -tight-bounds,
-log-file, -log-format, -metrics-addr and -trace.

Examples:
  stagetool info chair.glb
  stagetool frame -width 1920 -height 1080 chair.glb
  stagetool variants chair.glb "Walnut"
  stagetool export -variant Walnut -max-texture 1024 -o walnut.glb chair.glb
  stagetool play -animation Idle -duration 3s -fps 60 robot.glb`)
}

// env is what every command shares once flags are parsed.
type env struct {
	cfg      *config.Config
	log      *zap.Logger
	metrics  *observability.Collector
	shutdown func(context.Context) error
}

func start(fs *flag.FlagSet, flags *config.Flags, args []string) (*env, error) {
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	cfg, err := config.Load(flags)
	if err != nil {
		return nil, err
	}

	opts := logger.Options{Level: cfg.Logging.Level, Format: cfg.Logging.Format, Console: os.Stderr}
	if cfg.Logging.LogFile != "" {
		opts.File = logger.DefaultFileConfig(cfg.Logging.LogFile)
	}
	if err := logger.InitWithOptions(opts); err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	e := &env{cfg: cfg, log: logger.Named("stagetool")}
	if cfg.Metrics.Enabled {
		if e.metrics, err = observability.NewCollector(nil); err != nil {
			return nil, err
		}
	}
	e.shutdown, err = observability.InitTracing(context.Background(), observability.TracingConfig{
		Enabled:     cfg.Tracing.Enabled,
		ServiceName: cfg.Tracing.ServiceName,
		Exporter:    cfg.Tracing.Exporter,
	}, logger.Named("tracing"))
	if err != nil {
		return nil, err
	}
	return e, nil
}

func (e *env) close() {
	observability.ShutdownWithTimeout(context.Background(), e.shutdown, e.log)
	logger.Sync()
}

// load mounts the model named by the first positional argument. Ctrl-C
// cancels the load.
func (e *env) load(fs *flag.FlagSet) (*viewer.ModelScene, error) {
	if fs.NArg() < 1 {
		return nil, fmt.Errorf("missing model path")
	}
	opts := viewer.OptionsFromConfig(e.cfg, logger.Named("viewer"), e.metrics)
	scene := viewer.New(opts)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := scene.SetSource(ctx, fs.Arg(0)); err != nil {
		return nil, err
	}
	if !scene.HasModel() {
		return nil, fmt.Errorf("load of %s interrupted", fs.Arg(0))
	}
	return scene, nil
}

func cmdInfo(args []string) error {
	fs := flag.NewFlagSet("info", flag.ExitOnError)
	flags := config.RegisterFlags(fs)
	e, err := start(fs, flags, args)
	if err != nil {
		return err
	}
	defer e.close()

	scene, err := e.load(fs)
	if err != nil {
		return err
	}
	graph := scene.Model().Graph()
	doc := graph.Document

	fmt.Printf("Model:      %s\n", scene.URL())
	fmt.Printf("Scenes:     %d\n", len(doc.Scenes))
	fmt.Printf("Nodes:      %d\n", len(doc.Nodes))
	fmt.Printf("Meshes:     %d\n", len(doc.Meshes))
	fmt.Printf("Materials:  %d\n", len(doc.Materials))
	fmt.Printf("Textures:   %d\n", len(doc.Textures))
	if len(doc.ExtensionsUsed) > 0 {
		fmt.Printf("Extensions: %s\n", strings.Join(doc.ExtensionsUsed, ", "))
	}
	if v := scene.AvailableVariants(); len(v) > 0 {
		fmt.Printf("Variants:   %s\n", strings.Join(v, ", "))
	}
	if len(graph.Clips) > 0 {
		fmt.Println("Animations:")
		for _, c := range graph.Clips {
			fmt.Printf("  %-20s %6.2fs  %d tracks\n", c.Name, c.Duration, len(c.Tracks))
		}
	}

	box := scene.BoundingBox()
	if box.IsEmpty() {
		fmt.Println("Bounds:     (no geometry)")
		return nil
	}
	size := box.Size()
	fmt.Printf("Bounds:     %.3f x %.3f x %.3f\n", size.X(), size.Y(), size.Z())
	c := box.Center()
	fmt.Printf("Center:     (%.3f, %.3f, %.3f)\n", c.X(), c.Y(), c.Z())
	return nil
}

func cmdFrame(args []string) error {
	fs := flag.NewFlagSet("frame", flag.ExitOnError)
	flags := config.RegisterFlags(fs)
	e, err := start(fs, flags, args)
	if err != nil {
		return err
	}
	defer e.close()

	scene, err := e.load(fs)
	if err != nil {
		return err
	}
	cam := scene.Camera()
	w, h := scene.Size()
	fmt.Printf("Viewport:        %dx%d (aspect %.3f)\n", w, h, scene.Aspect())
	fmt.Printf("Bounding radius: %.4f\n", scene.BoundingRadius())
	fmt.Printf("Ideal aspect:    %.4f\n", scene.IdealAspect())
	fmt.Printf("Reference FoV:   %.2f deg\n", e.cfg.Viewer.FoVDeg)
	fmt.Printf("Adjusted FoV:    %.2f deg\n", scene.AdjustedFoV())
	fmt.Printf("Ideal distance:  %.4f\n", framing.IdealCameraDistance(scene.BoundingRadius(), e.cfg.Viewer.FoVDeg))
	fmt.Printf("Camera distance: %.4f (near %.4f, far %.4f)\n", cam.Distance, cam.Near, cam.Far)
	t := scene.Target()
	fmt.Printf("Target:          (%.3f, %.3f, %.3f)\n", t.X(), t.Y(), t.Z())
	return nil
}

func cmdVariants(args []string) error {
	fs := flag.NewFlagSet("variants", flag.ExitOnError)
	flags := config.RegisterFlags(fs)
	e, err := start(fs, flags, args)
	if err != nil {
		return err
	}
	defer e.close()

	scene, err := e.load(fs)
	if err != nil {
		return err
	}
	variants := scene.AvailableVariants()
	if fs.NArg() < 2 {
		if len(variants) == 0 {
			fmt.Println("No variants.")
			return nil
		}
		for i, v := range variants {
			fmt.Printf("  %d  %s\n", i, v)
		}
		return nil
	}

	name := fs.Arg(1)
	if err := scene.SwitchVariant(context.Background(), &name); err != nil {
		return err
	}
	fmt.Printf("Applied variant %q. Materials:\n", name)
	for _, mat := range scene.Model().Materials() {
		c := mat.BaseColorFactor()
		fmt.Printf("  %3d  %-24s base color (%.2f, %.2f, %.2f, %.2f)\n",
			mat.Index(), mat.Name(), c[0], c[1], c[2], c[3])
	}
	return nil
}

func cmdExport(args []string) error {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	flags := config.RegisterFlags(fs)
	output := fs.String("o", "", "Output file (.glb or .gltf)")
	variant := fs.String("variant", "", "Apply this variant before exporting")
	maxTexture := fs.Int("max-texture", -1, "Downscale textures above this size (0 = keep)")
	all := fs.Bool("all", false, "Include hidden objects")
	e, err := start(fs, flags, args)
	if err != nil {
		return err
	}
	defer e.close()

	if *output == "" {
		return fmt.Errorf("missing -o output file")
	}
	scene, err := e.load(fs)
	if err != nil {
		return err
	}
	if *variant != "" {
		if err := scene.SwitchVariant(context.Background(), variant); err != nil {
			return err
		}
	}

	opts := viewer.ExportOptionsFromConfig(e.cfg.Export)
	opts.Binary = !strings.EqualFold(pathExt(*output), ".gltf")
	if *maxTexture >= 0 {
		opts.MaxTextureSize = *maxTexture
	}
	if *all {
		opts.OnlyVisible = false
	}
	data, err := scene.ExportScene(context.Background(), opts)
	if err != nil {
		return err
	}
	if err := os.WriteFile(*output, data, 0644); err != nil {
		return err
	}
	fmt.Printf("Wrote %s (%s, %d bytes)\n", *output, opts.MimeType(), len(data))
	return nil
}

func cmdPlay(args []string) error {
	fs := flag.NewFlagSet("play", flag.ExitOnError)
	flags := config.RegisterFlags(fs)
	name := fs.String("animation", "", "Animation to play (default first)")
	loop := fs.String("loop", "repeat", "Loop mode: repeat, once or pingpong")
	reps := fs.Float64("reps", gomath.Inf(1), "Total plays")
	crossfade := fs.Duration("crossfade", 0, "Cross-fade time")
	duration := fs.Duration("duration", 2*time.Second, "How long to run")
	fps := fs.Int("fps", 60, "Ticks per second")
	e, err := start(fs, flags, args)
	if err != nil {
		return err
	}
	defer e.close()

	var srv *http.Server
	if e.metrics != nil {
		srv = &http.Server{Addr: e.cfg.Metrics.ListenAddr, Handler: e.metrics.Handler()}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				e.log.Error("metrics server failed", zap.Error(err))
			}
		}()
		defer srv.Close()
	}

	scene, err := e.load(fs)
	if err != nil {
		return err
	}
	if *fps <= 0 {
		*fps = 60
	}
	scene.PlayAnimation(*name, *crossfade, animation.ParseLoopMode(*loop), *reps)
	if !scene.HasActiveAnimation() {
		fmt.Println("No animations.")
		return nil
	}

	step := time.Second / time.Duration(*fps)
	frames, shadowFrames := 0, 0
	for elapsed := time.Duration(0); elapsed < *duration; elapsed += step {
		if scene.Tick(step) {
			frames++
			if scene.IsShadowDirty() {
				shadowFrames++
			}
			scene.HasRendered()
		}
	}
	fmt.Printf("Animation: %s (%.2fs)\n", scene.CurrentAnimation(), scene.Duration())
	fmt.Printf("Frames:    %d rendered, %d shadow updates\n", frames, shadowFrames)
	fmt.Printf("Time:      %.3fs\n", scene.AnimationTime())
	return nil
}

func cmdSchema(args []string) error {
	fs := flag.NewFlagSet("schema", flag.ExitOnError)
	name := fs.String("name", "", "Model name")
	poster := fs.String("poster", "", "Poster image URL")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("missing model URL")
	}
	out, err := viewer.SchemaJSON(fs.Arg(0), *name, *poster)
	if err != nil {
		return err
	}
	fmt.Println(out)
	return nil
}

func pathExt(p string) string {
	if i := strings.LastIndexByte(p, '.'); i >= 0 {
		return p[i:]
	}
	return ""
}
